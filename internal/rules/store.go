// internal/rules/store.go
package rules

import (
	"fmt"
	"sort"

	"github.com/solatis/blockkeeper/internal/markup"
	"github.com/solatis/blockkeeper/internal/types"
)

// Store holds the rule set of every block type and the markup grammar.
// Immutable after NewStore; safe for concurrent readers.
type Store struct {
	tools   map[string]types.RuleSet
	grammar *markup.Grammar
}

// NewStore builds the rule store and its markup grammar.
func NewStore(cfg types.SchemaConfig) (*Store, error) {
	if cfg.Tools == nil {
		return nil, types.ConfigErrorf("schema has no tools")
	}
	grammar, err := markup.NewGrammar(cfg.CustomTags)
	if err != nil {
		return nil, err
	}

	tools := make(map[string]types.RuleSet, len(cfg.Tools))
	for name, rs := range cfg.Tools {
		tools[name] = rs
	}
	return &Store{tools: tools, grammar: grammar}, nil
}

// Lookup returns the rule set for blockType.
func (s *Store) Lookup(blockType string) (types.RuleSet, error) {
	rs, ok := s.tools[blockType]
	if !ok {
		return types.RuleSet{}, fmt.Errorf("%w: %q", types.ErrUnknownBlockType, blockType)
	}
	return rs, nil
}

// BlockTypes returns the configured block types, sorted.
func (s *Store) BlockTypes() []string {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Grammar returns the markup grammar built for this store.
func (s *Store) Grammar() *markup.Grammar {
	return s.grammar
}

// Verify expands every rule of every block type and compiles every
// allowedTags list. Rules are otherwise expanded lazily, so a schema with a
// malformed rule only fails when a payload reaches it; Verify surfaces such
// errors up front.
func (s *Store) Verify() error {
	for _, name := range s.BlockTypes() {
		if err := s.verifyRuleSet(s.tools[name], []types.Key{types.NamedKey(name)}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) verifyRuleSet(rs types.RuleSet, path []types.Key) error {
	for _, e := range rs.Entries() {
		p := childPath(path, types.NamedKey(e.Key))
		rule, err := Expand(e.Rule)
		if err != nil {
			return fmt.Errorf("rule for %q: %w", types.FormatPath(p), err)
		}
		switch rule.Type {
		case TypeString:
			if rule.AllowedTags != markup.AllowAll {
				if _, err := s.grammar.BindString(rule.AllowedTags); err != nil {
					return fmt.Errorf("rule for %q: %w", types.FormatPath(p), err)
				}
			}
		case TypeArray:
			if err := s.verifyRuleSet(rule.Data, p); err != nil {
				return err
			}
		case TypeInteger, TypeBoolean:
		default:
			if !rule.Enumerated {
				return fmt.Errorf("rule for %q: %w", types.FormatPath(p),
					types.ConfigErrorf("unhandled rule type %q", rule.Type))
			}
		}
	}
	return nil
}
