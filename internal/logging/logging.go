// Provides logrus setup shared by the gateway services
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	Logger           *log.Logger        = nil
	lumberjackLogger *lumberjack.Logger = nil
)

type gatewayFormatter struct {
	log.TextFormatter
}

func ToJson(obj any) string {
	ret, _ := json.MarshalIndent(obj, " ", " ")
	return string(ret)
}

// LoggingSetup (re)initialises the package logger, writing to stderr and a
// rotated file under ./logs. Called once at startup with debug enabled, then
// again after config load with the configured level.
func LoggingSetup(isDebug bool, fileName string) *log.Logger {
	if Logger != nil {
		Logger.Writer().Close()
	}
	if lumberjackLogger != nil {
		lumberjackLogger.Close()
	}

	logLevel := log.InfoLevel
	if isDebug {
		logLevel = log.DebugLevel
	}

	lumberjackLogger = &lumberjack.Logger{
		Filename:   filepath.ToSlash("./logs/" + fileName + ".log"),
		MaxSize:    10, // MB
		MaxBackups: 10,
		Compress:   false,
	}

	Logger = &log.Logger{
		Out:   io.MultiWriter(os.Stderr, lumberjackLogger),
		Level: logLevel,
		Hooks: make(log.LevelHooks),
		Formatter: &gatewayFormatter{log.TextFormatter{
			FullTimestamp:          true,
			TimestampFormat:        "2006-01-02 15:04:05.000",
			ForceColors:            true,
			DisableLevelTruncation: true,
		}},
	}
	return Logger
}

func (f *gatewayFormatter) Format(entry *log.Entry) ([]byte, error) {
	var logLevelStr string

	switch entry.Level {
	case log.InfoLevel:
		logLevelStr = "INFO "
	case log.WarnLevel:
		logLevelStr = "WARN "
	case log.DebugLevel:
		logLevelStr = "DEBUG"
	case log.TraceLevel:
		logLevelStr = "TRACE"
	case log.FatalLevel:
		logLevelStr = "FATAL"
	case log.PanicLevel:
		logLevelStr = "PANIC"
	default:
		logLevelStr = strings.ToUpper(entry.Level.String())
	}

	return []byte(fmt.Sprintf("%s : %s : %s\n", entry.Time.Format(f.TimestampFormat), logLevelStr, entry.Message)), nil
}
