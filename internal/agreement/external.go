package agreement

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os/exec"
	"strings"
	"time"

	"assessment-backend/internal/domain"
)

// ExternalRunner drives the real computation: it launches the configured
// assessment command, feeds it the job as JSON on stdin and consumes JSON
// lines from its stdout. Progress lines look like
//
//	{"progress": 0.4, "message": "Computing agreement metrics..."}
//
// and the final line carries either {"result": {...}} or {"error": "..."}.
type ExternalRunner struct {
	Command string
	Args    []string
}

func (e *ExternalRunner) Name() string { return "external:" + e.Command }

func (e *ExternalRunner) Run(ctx context.Context, job Job, report ProgressFunc) (*domain.Result, error) {
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, computationErrorf("encode job: %v", err)
	}

	cmd := exec.CommandContext(ctx, e.Command, e.Args...)
	cmd.Stdin = bytes.NewReader(payload)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, computationErrorf("open pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, computationErrorf("start %s: %v", e.Command, err)
	}

	result, streamErr := decodeStream(stdout, job, report)

	waitErr := cmd.Wait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if streamErr != nil {
		return nil, streamErr
	}
	if waitErr != nil {
		return nil, computationErrorf("%s: %v: %s", e.Command, waitErr, tail(stderr.String()))
	}
	return result, nil
}

// wireLine is one stdout line of the assessment command.
type wireLine struct {
	Progress *float64    `json:"progress"`
	Message  string      `json:"message"`
	Result   *wireResult `json:"result"`
	Error    string      `json:"error"`
}

type wireResult struct {
	Summary   string             `json:"summary"`
	Metrics   map[string]float64 `json:"metrics"`
	Files     []string           `json:"files"`
	Timestamp time.Time          `json:"timestamp"`
}

// decodeStream relays progress lines and returns the final result. A
// malformed line fails the whole run: a backend that cannot keep its wire
// format straight cannot be trusted with the numbers either.
func decodeStream(r io.Reader, job Job, report ProgressFunc) (*domain.Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var result *domain.Result
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var msg wireLine
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, computationErrorf("malformed progress line: %v", err)
		}

		switch {
		case msg.Error != "":
			return nil, &ComputationError{Message: msg.Error}
		case msg.Result != nil:
			result = &domain.Result{
				Summary:   msg.Result.Summary,
				Metrics:   msg.Result.Metrics,
				Files:     msg.Result.Files,
				Timestamp: msg.Result.Timestamp,
			}
			if len(result.Files) == 0 {
				result.Files = job.Files
			}
			if result.Timestamp.IsZero() {
				result.Timestamp = time.Now()
			}
		case msg.Progress != nil:
			report(*msg.Progress, msg.Message)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, computationErrorf("read backend output: %v", err)
	}
	if result == nil {
		return nil, computationErrorf("backend exited without a result")
	}
	return result, nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	lines := strings.Split(s, "\n")
	if len(lines) > 3 {
		lines = lines[len(lines)-3:]
	}
	return strings.Join(lines, " | ")
}
