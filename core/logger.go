package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

var logLevels = map[string]int{
	"DEBUG": 0,
	"INFO":  1,
	"WARN":  2,
	"ERROR": 3,
}

// ProductionLogger writes structured log lines as JSON (for log aggregation)
// or as human-readable text (for local development).
type ProductionLogger struct {
	level       string
	format      string
	serviceName string
	component   string
	timeFormat  string
	output      io.Writer
	mu          *sync.Mutex
}

// NewProductionLogger creates a logger from the logging section of the config.
// A nil output writes to stdout.
func NewProductionLogger(logging LoggingConfig, serviceName string, output io.Writer) Logger {
	if output == nil {
		output = os.Stdout
	}
	level := strings.ToUpper(logging.Level)
	if _, ok := logLevels[level]; !ok {
		level = "INFO"
	}
	format := strings.ToLower(logging.Format)
	if format != "json" {
		format = "text"
	}
	timeFormat := logging.TimeFormat
	if timeFormat == "" {
		timeFormat = time.RFC3339
	}

	return &ProductionLogger{
		level:       level,
		format:      format,
		serviceName: serviceName,
		component:   "storefront",
		timeFormat:  timeFormat,
		output:      output,
		mu:          &sync.Mutex{},
	}
}

// WithComponent returns a child logger sharing output and level
func (p *ProductionLogger) WithComponent(component string) Logger {
	child := *p
	child.component = component
	return &child
}

func (p *ProductionLogger) Info(msg string, fields map[string]interface{}) {
	p.log("INFO", msg, fields)
}

func (p *ProductionLogger) Warn(msg string, fields map[string]interface{}) {
	p.log("WARN", msg, fields)
}

func (p *ProductionLogger) Error(msg string, fields map[string]interface{}) {
	p.log("ERROR", msg, fields)
}

func (p *ProductionLogger) Debug(msg string, fields map[string]interface{}) {
	p.log("DEBUG", msg, fields)
}

func (p *ProductionLogger) log(level, msg string, fields map[string]interface{}) {
	if logLevels[level] < logLevels[p.level] {
		return
	}

	timestamp := time.Now().Format(p.timeFormat)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.format == "json" {
		entry := make(map[string]interface{}, len(fields)+5)
		for k, v := range fields {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			entry[k] = v
		}
		entry["timestamp"] = timestamp
		entry["level"] = level
		entry["service"] = p.serviceName
		entry["component"] = p.component
		entry["message"] = msg

		data, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(p.output, "%s [%s] [%s] %s (unencodable fields: %v)\n", timestamp, level, p.component, msg, err)
			return
		}
		fmt.Fprintln(p.output, string(data))
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%s] %s", timestamp, level, p.component, msg)
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}
	fmt.Fprintln(p.output, b.String())
}
