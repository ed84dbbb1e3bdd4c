// Package anonymize removes or transfers signer appearance through an
// external appearance plugin.
package anonymize

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/islpose/internal/plugin"
	"github.com/ayusman/islpose/internal/pose"
)

// ErrOptionalDependencyMissing is returned when anonymization is requested
// but no installed plugin provides it.
var ErrOptionalDependencyMissing = errors.New("optional dependency missing")

// InstallHint tells the user how to provide the appearance plugin.
const InstallHint = "please install the appearance plugin: " +
	"go build -o <plugin-dir>/appearance/appearance ./plugins/appearance " +
	"and copy plugins/appearance/plugin.json next to it"

// Plugin actions.
const (
	ActionRemove   = "remove_appearance"
	ActionTransfer = "transfer_appearance"
)

// Anonymizer strips or replaces the appearance of a signer.
type Anonymizer interface {
	RemoveAppearance(ctx context.Context, p *pose.Pose) (*pose.Pose, error)
	TransferAppearance(ctx context.Context, p, reference *pose.Pose) (*pose.Pose, error)
}

// Params is the payload sent to the appearance plugin. Poses travel as
// encoded .pose bytes.
type Params struct {
	Pose      []byte `json:"pose"`
	Reference []byte `json:"reference,omitempty"`
}

// Result is the data returned by the appearance plugin.
type Result struct {
	Pose []byte `json:"pose"`
}

// EncodePose serializes a pose to .pose bytes.
func EncodePose(p *pose.Pose) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodePose parses .pose bytes.
func DecodePose(data []byte) (*pose.Pose, error) {
	return pose.Read(bytes.NewReader(data))
}

// PluginAnonymizer runs anonymization in the first plugin that lists the
// requested action.
type PluginAnonymizer struct {
	manager  *plugin.Manager
	executor *plugin.Executor
	config   json.RawMessage
}

// NewPluginAnonymizer creates a PluginAnonymizer. config is passed to the
// plugin unchanged and may be nil.
func NewPluginAnonymizer(m *plugin.Manager, e *plugin.Executor, config json.RawMessage) *PluginAnonymizer {
	return &PluginAnonymizer{manager: m, executor: e, config: config}
}

// Available reports whether a plugin provides action.
func (a *PluginAnonymizer) Available(action string) bool {
	_, err := a.manager.FindByAction(action)
	return err == nil
}

// RemoveAppearance implements Anonymizer.
func (a *PluginAnonymizer) RemoveAppearance(ctx context.Context, p *pose.Pose) (*pose.Pose, error) {
	return a.run(ctx, ActionRemove, p, nil)
}

// TransferAppearance implements Anonymizer.
func (a *PluginAnonymizer) TransferAppearance(ctx context.Context, p, reference *pose.Pose) (*pose.Pose, error) {
	if reference == nil {
		return nil, fmt.Errorf("%s: nil reference pose", ActionTransfer)
	}
	return a.run(ctx, ActionTransfer, p, reference)
}

func (a *PluginAnonymizer) run(ctx context.Context, action string, p, reference *pose.Pose) (*pose.Pose, error) {
	plug, err := a.manager.FindByAction(action)
	if errors.Is(err, plugin.ErrPluginNotFound) {
		return nil, fmt.Errorf("%w: no plugin provides %s; %s", ErrOptionalDependencyMissing, action, InstallHint)
	}
	if err != nil {
		return nil, err
	}

	params := Params{}
	if params.Pose, err = EncodePose(p); err != nil {
		return nil, fmt.Errorf("encode pose: %w", err)
	}
	if reference != nil {
		if params.Reference, err = EncodePose(reference); err != nil {
			return nil, fmt.Errorf("encode reference: %w", err)
		}
	}
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal params: %w", err)
	}

	config := a.config
	if config == nil {
		config = json.RawMessage("{}")
	}

	resp, err := a.executor.Execute(ctx, plug, &plugin.Request{
		Action: action,
		Config: config,
		Params: paramsJSON,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("%s: plugin %s: %s", action, plug.Manifest.Name, resp.Error)
	}

	var result Result
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("%s: failed to parse result: %w", action, err)
	}
	out, err := DecodePose(result.Pose)
	if err != nil {
		return nil, fmt.Errorf("%s: decode result: %w", action, err)
	}
	return out, nil
}
