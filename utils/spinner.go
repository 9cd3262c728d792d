package utils

import (
	"fmt"
	"strings"
	"time"
)

// Spinner initializes the process indicator.
type Spinner struct {
	stopChan chan struct{}
	done     chan struct{}
}

// NewSpinner instantiates a new Spinner struct.
func NewSpinner() *Spinner {
	return &Spinner{}
}

// Start starts the process indicator.
func (s *Spinner) Start(message string) {
	s.stopChan = make(chan struct{}, 1)
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		for {
			for _, r := range `-\|/` {
				select {
				case <-s.stopChan:
					fmt.Fprintf(output, "\r%s\r", strings.Repeat(" ", len(message)+2))
					return
				default:
					fmt.Fprintf(output, "\r%s %s", message, Success(string(r)))
					time.Sleep(time.Millisecond * 100)
				}
			}
		}
	}()
}

// Stop stops the process indicator and clears its line.
func (s *Spinner) Stop() {
	if s.stopChan == nil {
		return
	}
	s.stopChan <- struct{}{}
	<-s.done
	s.stopChan = nil
}
