package deps

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"

	"cdplayer/internal/config"
)

// Requirement is an external program the player runs.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports whether a requirement can run.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists what the daemon runs for cfg: the drive tools, the
// relay (usually a liquidsoap script) and the optional eject tool.
func Requirements(cfg *config.Config) []Requirement {
	if cfg == nil {
		return nil
	}
	relay := ""
	if len(cfg.Relay.Command) > 0 {
		relay = cfg.Relay.Command[0]
	}
	return []Requirement{
		{
			Name:        "wodim",
			Command:     strings.TrimSpace(cfg.Drive.TOCBinary),
			Description: "Reads the disc table of contents",
		},
		{
			Name:        "icedax",
			Command:     strings.TrimSpace(cfg.Drive.ExtractBinary),
			Description: "Extracts audio and CD-Text/CDDB metadata",
		},
		{
			Name:        "Relay",
			Command:     strings.TrimSpace(relay),
			Description: "Streams the extracted audio (liquidsoap)",
		},
		{
			Name:        "eject",
			Command:     "eject",
			Description: "Ejects the disc (cdplayer eject)",
			Optional:    true,
		},
	}
}

// CheckAll evaluates every requirement of cfg.
func CheckAll(cfg *config.Config) []Status {
	reqs := Requirements(cfg)
	results := make([]Status, 0, len(reqs))
	for _, req := range reqs {
		results = append(results, Check(req))
	}
	return results
}

// Check resolves the requirement's command on PATH. A script must also have
// the interpreter on its "#!" line available, for example the liquidsoap
// behind "#!/usr/bin/env liquidsoap".
func Check(req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if status.Command == "" {
		status.Detail = "command not configured"
		return status
	}
	resolved, err := exec.LookPath(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("binary %q not found", status.Command)
		return status
	}
	if interpreter, ok := scriptInterpreter(resolved); ok {
		if _, err := exec.LookPath(interpreter); err != nil {
			status.Detail = fmt.Sprintf("interpreter %q for %s not found", interpreter, filepath.Base(resolved))
			return status
		}
	}
	status.Available = true
	return status
}
