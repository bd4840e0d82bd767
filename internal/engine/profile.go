package engine

import (
	"fmt"
	"strings"

	"github.com/arccheck/arccheck/internal/report"
)

// Profile names a fixed sequence of collection stages.
type Profile string

const (
	ProfileAgentCheck Profile = "agent"
	ProfileExtensions Profile = "extensions"
)

// Profiles lists the known profiles.
var Profiles = []Profile{ProfileAgentCheck, ProfileExtensions}

// ParseProfile accepts a profile name, ignoring case.
func ParseProfile(s string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(s))) {
	case ProfileAgentCheck, "agent-check", "check":
		return ProfileAgentCheck, nil
	case ProfileExtensions, "extension":
		return ProfileExtensions, nil
	}
	return "", fmt.Errorf("unknown profile %q (want agent or extensions)", s)
}

// Stage names, also used as the component of a failed-reader row.
const (
	StageProcesses     = "Core Processes"
	StageConfiguration = "Agent Configuration"
	StageEvents        = "Event Log"
	StageExtensions    = "Azure Extensions"
)

type stage struct {
	name    string
	collect func() report.Report
}

func (e *Engine) stages(p Profile) []stage {
	r := e.readers
	var stages []stage

	switch p {
	case ProfileAgentCheck:
		if r.Processes != nil {
			stages = append(stages, stage{StageProcesses, func() report.Report {
				return r.Processes.CheckCoreProcesses(r.CoreProcesses)
			}})
		}
		if r.Config != nil {
			stages = append(stages, stage{StageConfiguration, func() report.Report {
				return report.Report{r.Config.ReadAgentConfig()}
			}})
		}
		if r.Events != nil {
			stages = append(stages, stage{StageEvents, func() report.Report {
				if row, ok := r.Events.QueryRecentEvents(); ok {
					return report.Report{row}
				}
				return nil
			}})
		}
	case ProfileExtensions:
		if r.Extensions != nil {
			stages = append(stages, stage{StageExtensions, r.Extensions.EnumerateExtensions})
		}
	}
	return stages
}

func startMessage(p Profile) string {
	if p == ProfileExtensions {
		return "enumerating extensions..."
	}
	return "checking agent..."
}

func finishMessage(p Profile, rows int) string {
	if p == ProfileExtensions {
		return fmt.Sprintf("enumeration complete - %d extensions found", rows)
	}
	return fmt.Sprintf("check complete - %d components analyzed", rows)
}
