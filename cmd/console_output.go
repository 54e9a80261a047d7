package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mitchellh/colorstring"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

var levelColors = map[string]string{
	"fatal": "[red]",
	"error": "[red]",
	"warn":  "[yellow]",
	"debug": "[blue]",
	"trace": "[blue]",
}

// ConsoleWriter renders zerolog's JSON events as colored, human-readable
// lines on stderr.
type ConsoleWriter struct {
	lock sync.Mutex
}

func NewConsoleWriter() *ConsoleWriter {
	return &ConsoleWriter{}
}

func (w *ConsoleWriter) Write(p []byte) (n int, err error) {
	w.lock.Lock()
	defer w.lock.Unlock()

	var evt map[string]interface{}
	d := json.NewDecoder(bytes.NewReader(p))
	d.UseNumber()
	if err = d.Decode(&evt); err != nil {
		return n, eris.Wrapf(err, "cannot decode event: %s", p)
	}

	level, _ := evt["level"].(string)
	msg, _ := evt["message"].(string)

	if path, ok := evt["path"].(string); ok {
		// shorten absolute paths where possible
		if relPath, relErr := filepath.Rel(".", path); relErr == nil {
			msg = strings.ReplaceAll(msg, path, relPath)
		}
	}

	line := strings.Builder{}
	color, ok := levelColors[level]
	if !ok {
		color = "[green]"
	}
	line.WriteString(color)

	if task, ok := evt["task"].(string); ok {
		line.WriteString(task + ": ")
	}
	if level == "error" {
		line.WriteString("Error: ")
	}
	line.WriteString(msg)

	if details, ok := evt["error"].(string); ok {
		line.WriteString("\n" + details)
	}

	if os.Getenv("QDEV_DEBUG") != "" {
		for name, value := range evt {
			line.WriteString(fmt.Sprintf("\n  %s: %+v", name, value))
		}
	}

	line.WriteString("[reset]\n")
	return colorstring.Fprint(os.Stderr, line.String())
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if os.Getenv("QDEV_DEBUG") != "" {
		level = zerolog.DebugLevel
	}

	return zerolog.New(NewConsoleWriter()).Level(level)
}

func init() {
	zerolog.ErrorMarshalFunc = func(err error) interface{} {
		return eris.ToString(err, os.Getenv("QDEV_DEBUG") != "")
	}
}
