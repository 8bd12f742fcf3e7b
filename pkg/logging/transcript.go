package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TranscriptLogger records the human question/answer exchanges of sessions to
// daily log files, so interrupted tasks can be audited after the fact.
type TranscriptLogger struct {
	dir     string
	file    *os.File
	path    string
	mu      sync.Mutex
	lastDay string
}

// NewTranscriptLogger creates a transcript logger that writes to dir.
// Log files are named transcript-YYYY-MM-DD.log.
func NewTranscriptLogger(dir string) (*TranscriptLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create transcript log dir: %w", err)
	}

	l := &TranscriptLogger{dir: dir}
	if err := l.rotate(); err != nil {
		return nil, err
	}
	return l, nil
}

// Question records an input request surfaced by a session.
func (l *TranscriptLogger) Question(sessionID, question string) error {
	return l.write(sessionID, "Q", question)
}

// Answer records the answer that resolved a session's pending question.
func (l *TranscriptLogger) Answer(sessionID, answer string) error {
	return l.write(sessionID, "A", answer)
}

func (l *TranscriptLogger) write(sessionID, kind, content string) error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	today := time.Now().Format("2006-01-02")
	if today != l.lastDay {
		if err := l.rotateLocked(); err != nil {
			return err
		}
	}

	if l.file == nil {
		return nil
	}

	timestamp := time.Now().Format("15:04:05")
	_, err := fmt.Fprintf(l.file, "[%s] session=%s %s: %s\n", timestamp, sessionID, kind, content)
	return err
}

// Path returns the current log file path.
func (l *TranscriptLogger) Path() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.path
}

// Close closes the log file.
func (l *TranscriptLogger) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

func (l *TranscriptLogger) rotate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rotateLocked()
}

func (l *TranscriptLogger) rotateLocked() error {
	if l.file != nil {
		l.file.Close()
		l.file = nil
	}

	today := time.Now().Format("2006-01-02")
	l.lastDay = today
	l.path = filepath.Join(l.dir, "transcript-"+today+".log")

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open transcript log: %w", err)
	}
	l.file = file
	return nil
}
