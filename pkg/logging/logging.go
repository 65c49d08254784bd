package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"

	"github.com/sirupsen/logrus"
)

// NewLogger создает логгер сервиса: пишем одновременно в logs/all.log и в stdout.
// Логгер передается явно во все компоненты, глобального GetLogger нет.
func NewLogger(debug bool) *logrus.Logger {
	l := logrus.New()
	l.SetReportCaller(true)
	l.Formatter = &logrus.TextFormatter{
		CallerPrettyfier: func(frame *runtime.Frame) (function string, file string) {
			filename := path.Base(frame.File)
			return fmt.Sprintf("%s()", path.Base(frame.Function)), fmt.Sprintf("%s:%d", filename, frame.Line)
		},
		DisableColors: true,
		FullTimestamp: true,
	}

	err := os.MkdirAll("logs", 0770)
	if err != nil {
		l.Fatalf("failed os.MkdirAll(logs); %v", err)
	}

	allFile, err := os.OpenFile("logs/all.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		l.Fatalf("failed os.OpenFile(logs/all.log); %v", err)
	}

	l.SetOutput(io.MultiWriter(allFile, os.Stdout))

	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}

	return l
}
