package obs

import (
	"encoding/json"
	"log"
	"os"
	"sync"
)

var (
	initOnce sync.Once
	lineLog  *log.Logger
)

// Logger returns the process-wide line logger: stdout, no prefix, one JSON
// object per line.
func Logger() *log.Logger {
	initOnce.Do(func() {
		lineLog = log.New(os.Stdout, "", 0)
	})
	return lineLog
}

// LogRequest emits one log line from a field map. A marshal failure writes a
// fixed error line instead of dropping the event.
func LogRequest(fields map[string]any) {
	line, err := json.Marshal(fields)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"unloggable entry"}`)
		return
	}
	Logger().Println(string(line))
}
