// Package router dispatches questions to the assistant of a chat profile.
package router

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/community-assistant/server/internal/assistant/model"
	errx "github.com/community-assistant/server/internal/core/error"
	"github.com/community-assistant/server/internal/metrics"
	logx "github.com/community-assistant/server/pkg/logger"
)

//go:embed profiles.yaml
var profilesYAML []byte

// Profile is a selectable chat mode.
type Profile struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
}

// Assistant answers one question. Implementations are stateless between questions.
type Assistant interface {
	Answer(ctx context.Context, question string) (*model.Reply, error)
}

// UnknownProfileError is returned for a profile name with no assistant.
type UnknownProfileError struct {
	Name string
}

func (e *UnknownProfileError) Error() string {
	return fmt.Sprintf("unknown chat profile %q", e.Name)
}

// LoadProfiles parses the embedded profile catalogue.
func LoadProfiles() ([]Profile, error) {
	var doc struct {
		Profiles []Profile `yaml:"profiles"`
	}
	if err := yaml.Unmarshal(profilesYAML, &doc); err != nil {
		return nil, fmt.Errorf("parse profiles: %w", err)
	}
	return doc.Profiles, nil
}

type Router struct {
	profiles   []Profile
	assistants map[string]Assistant
	metrics    *metrics.Metrics
}

// New pairs every catalogue profile with its assistant. Profiles without an
// assistant are hidden; assistants without a profile are an error.
func New(assistants map[string]Assistant, m *metrics.Metrics) (*Router, error) {
	all, err := LoadProfiles()
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(all))
	r := &Router{assistants: assistants, metrics: m}
	for _, p := range all {
		known[p.Name] = true
		if assistants[p.Name] != nil {
			r.profiles = append(r.profiles, p)
		} else {
			logx.Warn().Str("profile", p.Name).Msg("profile disabled, no assistant configured")
		}
	}
	for name := range assistants {
		if !known[name] {
			return nil, &UnknownProfileError{Name: name}
		}
	}
	return r, nil
}

// Profiles lists the enabled profiles in catalogue order.
func (r *Router) Profiles() []Profile {
	return r.profiles
}

// Lookup returns the enabled profile called name.
func (r *Router) Lookup(name string) (Profile, error) {
	for _, p := range r.profiles {
		if p.Name == name {
			return p, nil
		}
	}
	return Profile{}, errx.BadRequest(&UnknownProfileError{Name: name}, "unknown chat profile")
}

// Route answers question with the assistant of profile. Assistant failures
// become visible "Error: ..." replies; only an unknown profile is an error.
func (r *Router) Route(ctx context.Context, profile, question string) (*model.Reply, error) {
	if _, err := r.Lookup(profile); err != nil {
		return nil, err
	}
	a := r.assistants[profile]

	start := time.Now()
	reply, err := a.Answer(ctx, question)
	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeError
		logx.Warn().Err(err).
			Str("profile", profile).
			Str("session_id", model.SessionIDFrom(ctx)).
			Int("status", errx.StatusOf(err)).
			Msg("assistant failed")
		if reply == nil {
			reply = &model.Reply{Content: "Error: " + errorText(err)}
		}
	}
	r.metrics.ObserveRequest(profile, outcome, time.Since(start))
	return reply, nil
}

func errorText(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "the request timed out"
	}
	return err.Error()
}
