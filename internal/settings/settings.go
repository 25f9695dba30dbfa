// Package settings decodes the lister's persisted key/value settings into
// typed container configurations and global switches.
//
// The host stores settings as flat string pairs (numConfigs, config_0_template,
// pageSize, ...). Decode turns them into an ordered []Container; Encode writes
// them back in the same flat schema.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/calvinalkan/pagelister/internal/content"
)

// Selection modes.
const (
	ModeAuto   = "auto"
	ModeManual = "manual"
)

// Auto-mode strategies.
const (
	StrategyFirstN = "firstN"
	StrategyCommon = "common"
)

// Defaults.
const (
	DefaultPageSize  = 50
	DefaultNumFields = 5
)

// Flat keys.
const (
	KeyNumConfigs         = "numConfigs"
	KeyPageSize           = "pageSize"
	KeyShowHelpText       = "showHelpText"
	KeyShowViewButton     = "showViewButton"
	KeyHideChildrenInTree = "hideChildrenInTree"
	KeyRenameEditToTable  = "renameEditToTable"
	KeyParentPathPrefix   = "parentPathPrefix"
)

var (
	ErrTemplateRequired  = errors.New("container template is required")
	ErrInvalidMode       = errors.New("invalid mode")
	ErrInvalidStrategy   = errors.New("invalid field selection mode")
	ErrDuplicateTemplate = errors.New("duplicate container template")
	ErrInvalidKey        = errors.New("invalid settings key")
)

// Container configures one template whose records render as a table.
type Container struct {
	Template  string
	Mode      string
	NumFields int
	Strategy  string
	Fields    []string
}

// Settings is the decoded configuration.
type Settings struct {
	Containers         []Container
	PageSize           int
	ShowHelpText       bool
	ShowViewButton     bool
	HideChildrenInTree bool
	RenameEditToTable  bool
	ParentPathPrefix   string
}

// Default returns the settings used when nothing is stored.
func Default() Settings {
	return Settings{
		PageSize:           DefaultPageSize,
		ShowHelpText:       true,
		ShowViewButton:     false,
		HideChildrenInTree: true,
		RenameEditToTable:  true,
	}
}

// Source reads the host's key/value settings.
type Source interface {
	LoadSettings(ctx context.Context, keys ...string) (map[string]string, error)
}

// Load reads all settings from src and decodes them.
func Load(ctx context.Context, src Source) (Settings, []string, error) {
	raw, err := src.LoadSettings(ctx)
	if err != nil {
		return Settings{}, nil, fmt.Errorf("load settings: %w", err)
	}

	s, warnings := Decode(raw)

	return s, warnings, nil
}

// Container returns the configuration for the template name.
func (s *Settings) Container(template string) (Container, bool) {
	for _, c := range s.Containers {
		if c.Template == template {
			return c, true
		}
	}

	return Container{}, false
}

// ContainerFor returns the configuration for rec when rec is a container:
// its template is configured and its path lies under ParentPathPrefix.
func (s *Settings) ContainerFor(rec *content.Record) (Container, bool) {
	if rec == nil || rec.ID == 0 {
		return Container{}, false
	}

	if !s.underPrefix(rec.Path) {
		return Container{}, false
	}

	return s.Container(rec.Template)
}

// IsContainer reports whether rec is a configured container.
func (s *Settings) IsContainer(rec *content.Record) bool {
	_, ok := s.ContainerFor(rec)
	return ok
}

func (s *Settings) underPrefix(path string) bool {
	trimmed := strings.Trim(strings.ToLower(s.ParentPathPrefix), "/")
	if trimmed == "" {
		return true
	}

	prefix := "/" + trimmed + "/"
	p := strings.ToLower(path)

	if !strings.HasSuffix(p, "/") {
		p += "/"
	}

	return strings.HasPrefix(p, prefix)
}

// Upsert replaces the container for c.Template or appends it.
func (s *Settings) Upsert(c Container) error {
	err := c.Validate()
	if err != nil {
		return err
	}

	for i := range s.Containers {
		if s.Containers[i].Template == c.Template {
			s.Containers[i] = c
			return nil
		}
	}

	s.Containers = append(s.Containers, c)

	return nil
}

// Remove drops the container for template. Reports whether one existed.
func (s *Settings) Remove(template string) bool {
	for i := range s.Containers {
		if s.Containers[i].Template == template {
			s.Containers = append(s.Containers[:i], s.Containers[i+1:]...)
			return true
		}
	}

	return false
}

// Validate checks a container record.
func (c *Container) Validate() error {
	if strings.TrimSpace(c.Template) == "" {
		return ErrTemplateRequired
	}

	if c.Mode != ModeAuto && c.Mode != ModeManual {
		return fmt.Errorf("%w: %q", ErrInvalidMode, c.Mode)
	}

	if c.Strategy != StrategyFirstN && c.Strategy != StrategyCommon {
		return fmt.Errorf("%w: %q", ErrInvalidStrategy, c.Strategy)
	}

	return nil
}

// Decode parses flat key/value pairs. Malformed values fall back to defaults;
// each fallback and each dropped duplicate is reported as a warning.
func Decode(raw map[string]string) (Settings, []string) {
	s := Default()

	var warnings []string

	warnf := func(format string, a ...any) {
		warnings = append(warnings, fmt.Sprintf(format, a...))
	}

	s.PageSize = intValue(raw, KeyPageSize, DefaultPageSize, warnf)
	if s.PageSize < 1 {
		warnf("%s: %d is not positive, using %d", KeyPageSize, s.PageSize, DefaultPageSize)
		s.PageSize = DefaultPageSize
	}

	s.ShowHelpText = boolValue(raw, KeyShowHelpText, s.ShowHelpText, warnf)
	s.ShowViewButton = boolValue(raw, KeyShowViewButton, s.ShowViewButton, warnf)
	s.HideChildrenInTree = boolValue(raw, KeyHideChildrenInTree, s.HideChildrenInTree, warnf)
	s.RenameEditToTable = boolValue(raw, KeyRenameEditToTable, s.RenameEditToTable, warnf)
	s.ParentPathPrefix = strings.TrimSpace(raw[KeyParentPathPrefix])

	n := intValue(raw, KeyNumConfigs, 0, warnf)

	if limit := configSlots(raw); n > limit {
		warnf("%s: %d exceeds the %d stored configs, using %d", KeyNumConfigs, n, limit, limit)
		n = limit
	}

	seen := make(map[string]bool, n)

	for i := range max(n, 0) {
		c := decodeContainer(raw, i, warnf)
		if c.Template == "" {
			warnf("config_%d: missing template, skipped", i)
			continue
		}

		if seen[c.Template] {
			warnf("config_%d: %v: %s", i, ErrDuplicateTemplate, c.Template)
			continue
		}

		seen[c.Template] = true
		s.Containers = append(s.Containers, c)
	}

	return s, warnings
}

// configSlots returns one past the highest config_{i}_* index in raw, never
// more than the number of stored keys.
func configSlots(raw map[string]string) int {
	slots := 0

	for key := range raw {
		rest, ok := strings.CutPrefix(key, "config_")
		if !ok {
			continue
		}

		idx, _, found := strings.Cut(rest, "_")
		if !found {
			continue
		}

		i, err := strconv.Atoi(idx)
		if err == nil && i >= slots {
			slots = i + 1
		}
	}

	return min(slots, len(raw))
}

func decodeContainer(raw map[string]string, i int, warnf func(string, ...any)) Container {
	key := func(name string) string { return fmt.Sprintf("config_%d_%s", i, name) }

	c := Container{
		Template:  strings.TrimSpace(raw[key("template")]),
		Mode:      strings.TrimSpace(raw[key("mode")]),
		NumFields: intValue(raw, key("numFields"), DefaultNumFields, warnf),
		Strategy:  strings.TrimSpace(raw[key("fieldSelectionMode")]),
		Fields:    SplitFields(raw[key("fields")]),
	}

	if c.Mode != ModeManual {
		if c.Mode != "" && c.Mode != ModeAuto {
			warnf("%s: %v %q, using %s", key("mode"), ErrInvalidMode, c.Mode, ModeAuto)
		}

		c.Mode = ModeAuto
	}

	if c.Strategy != StrategyCommon {
		if c.Strategy != "" && c.Strategy != StrategyFirstN {
			warnf("%s: %v %q, using %s", key("fieldSelectionMode"), ErrInvalidStrategy, c.Strategy, StrategyFirstN)
		}

		c.Strategy = StrategyFirstN
	}

	return c
}

// Encode flattens s into the persisted key/value schema.
func (s *Settings) Encode() map[string]string {
	out := map[string]string{
		KeyNumConfigs:         strconv.Itoa(len(s.Containers)),
		KeyPageSize:           strconv.Itoa(s.PageSize),
		KeyShowHelpText:       formatBool(s.ShowHelpText),
		KeyShowViewButton:     formatBool(s.ShowViewButton),
		KeyHideChildrenInTree: formatBool(s.HideChildrenInTree),
		KeyRenameEditToTable:  formatBool(s.RenameEditToTable),
		KeyParentPathPrefix:   s.ParentPathPrefix,
	}

	for i, c := range s.Containers {
		prefix := fmt.Sprintf("config_%d_", i)
		out[prefix+"template"] = c.Template
		out[prefix+"mode"] = c.Mode
		out[prefix+"numFields"] = strconv.Itoa(c.NumFields)
		out[prefix+"fieldSelectionMode"] = c.Strategy
		out[prefix+"fields"] = strings.Join(c.Fields, ",")
	}

	return out
}

// ValidateKey reports whether key belongs to the settings schema.
func ValidateKey(key string) error {
	switch key {
	case KeyNumConfigs, KeyPageSize, KeyShowHelpText, KeyShowViewButton,
		KeyHideChildrenInTree, KeyRenameEditToTable, KeyParentPathPrefix:
		return nil
	}

	rest, ok := strings.CutPrefix(key, "config_")
	if ok {
		idx, name, found := strings.Cut(rest, "_")
		if _, err := strconv.Atoi(idx); found && err == nil {
			switch name {
			case "template", "mode", "numFields", "fieldSelectionMode", "fields":
				return nil
			}
		}
	}

	return fmt.Errorf("%w: %s", ErrInvalidKey, key)
}

// SplitFields parses a comma-separated field list, dropping blanks.
func SplitFields(raw string) []string {
	var out []string

	for part := range strings.SplitSeq(raw, ",") {
		name := strings.TrimSpace(part)
		if name != "" {
			out = append(out, name)
		}
	}

	return out
}

func intValue(raw map[string]string, key string, def int, warnf func(string, ...any)) int {
	v, ok := raw[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}

	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		warnf("%s: %q is not an integer, using %d", key, v, def)
		return def
	}

	return n
}

func boolValue(raw map[string]string, key string, def bool, warnf func(string, ...any)) bool {
	v, ok := raw[key]
	if !ok || strings.TrimSpace(v) == "" {
		return def
	}

	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}

	warnf("%s: %q is not a boolean, using %t", key, v, def)

	return def
}

func formatBool(b bool) string {
	if b {
		return "1"
	}

	return "0"
}
