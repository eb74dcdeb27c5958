package tui

import "github.com/harrison/paircorpus/internal/models"

type runStartMsg struct {
	mode  string
	total int
}

type pairStartMsg struct {
	name string
}

type pairStateMsg struct {
	name  string
	state models.PairState
}

type pairResultMsg struct {
	result models.PairResult
}

type progressMsg struct {
	done  int
	total int
}

type logMsg struct {
	level string
	text  string
}

type summaryMsg struct {
	report models.RunReport
}

// doneMsg is sent once the background work has returned.
type doneMsg struct {
	err error
}
