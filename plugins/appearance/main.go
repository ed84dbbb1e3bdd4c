// Package main provides the appearance plugin. It removes signer appearance
// by moving a pose onto a neutral pose, or transfers the appearance of a
// reference pose.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/ayusman/islpose/internal/anonymize"
	"github.com/ayusman/islpose/internal/plugin"
	"github.com/ayusman/islpose/internal/pose"
)

// DefaultNeutral is the neutral pose looked up in the plugin directory when
// the config does not name one.
const DefaultNeutral = "neutral.pose"

// Config is the plugin configuration passed by the host.
type Config struct {
	Neutral   string   `json:"neutral"`
	Threshold *float64 `json:"threshold"`
}

func main() {
	// Read request from stdin
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeResponse(os.Stdout, errorResponse(fmt.Sprintf("failed to decode request: %v", err)))
		return
	}

	writeResponse(os.Stdout, handle(&req))
}

// handle runs one request and builds its response.
func handle(req *plugin.Request) *plugin.Response {
	cfg := Config{}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return errorResponse(fmt.Sprintf("failed to parse config: %v", err))
		}
	}
	threshold := pose.VisibilityThreshold
	if cfg.Threshold != nil {
		threshold = *cfg.Threshold
	}

	var params anonymize.Params
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errorResponse(fmt.Sprintf("failed to parse params: %v", err))
	}
	p, err := anonymize.DecodePose(params.Pose)
	if err != nil {
		return errorResponse(fmt.Sprintf("failed to decode pose: %v", err))
	}

	var reference *pose.Pose
	switch req.Action {
	case anonymize.ActionTransfer:
		if len(params.Reference) == 0 {
			return errorResponse("reference pose is required")
		}
		if reference, err = anonymize.DecodePose(params.Reference); err != nil {
			return errorResponse(fmt.Sprintf("failed to decode reference: %v", err))
		}
	case anonymize.ActionRemove:
		if reference, err = loadNeutral(cfg.Neutral); err != nil {
			return errorResponse(err.Error())
		}
	default:
		return errorResponse(fmt.Sprintf("unknown action: %s", req.Action))
	}

	out, err := anonymize.Transfer(p, reference, threshold)
	if err != nil {
		return errorResponse(fmt.Sprintf("action %s failed: %v", req.Action, err))
	}

	encoded, err := anonymize.EncodePose(out)
	if err != nil {
		return errorResponse(fmt.Sprintf("failed to encode pose: %v", err))
	}
	data, err := json.Marshal(anonymize.Result{Pose: encoded})
	if err != nil {
		return errorResponse(fmt.Sprintf("failed to marshal result: %v", err))
	}
	return &plugin.Response{Success: true, Data: data}
}

// loadNeutral reads the neutral pose used to strip appearance.
func loadNeutral(path string) (*pose.Pose, error) {
	if path == "" {
		path = DefaultNeutral
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("no neutral pose at %s: configure \"neutral\" for remove_appearance", path)
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	p, err := pose.Read(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read neutral pose: %w", err)
	}
	return p, nil
}

func errorResponse(msg string) *plugin.Response {
	return &plugin.Response{Success: false, Error: msg}
}

// writeResponse writes a response to w.
func writeResponse(w io.Writer, resp *plugin.Response) {
	json.NewEncoder(w).Encode(resp)
}
