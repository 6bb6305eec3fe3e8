package extract

import (
	"fmt"
	"log/slog"

	"github.com/Sumatoshi-tech/regmetal/pkg/regmodel"
)

// Session owns the identity tables of one extraction run. Create a fresh
// session per generation run; sessions must not be shared between runs.
type Session struct {
	logger     *slog.Logger
	fields     map[regmodel.FieldKey]regmodel.RegisterField
	interrupts map[string]regmodel.Interrupt
	reused     int
}

// NewSession creates an empty session. A nil logger discards output.
func NewSession(logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Session{
		logger:     logger,
		fields:     make(map[regmodel.FieldKey]regmodel.RegisterField),
		interrupts: make(map[string]regmodel.Interrupt),
	}
}

// Field returns the canonical field for f's identity key, registering f when
// the key is new. A second definition with a different value fails with
// regmodel.ErrConflictingDuplicate.
func (s *Session) Field(field regmodel.RegisterField) (regmodel.RegisterField, error) {
	key := field.Key()

	existing, ok := s.fields[key]
	if !ok {
		s.fields[key] = field

		return field, nil
	}

	if existing != field {
		return regmodel.RegisterField{}, fmt.Errorf("%w: %s defined at bit %d width %d and at bit %d width %d",
			regmodel.ErrConflictingDuplicate, key, existing.BitOffset, existing.BitWidth, field.BitOffset, field.BitWidth)
	}

	s.reused++

	return existing, nil
}

// Interrupt returns the canonical interrupt for irq. Unnamed interrupts are
// never deduplicated.
func (s *Session) Interrupt(irq regmodel.Interrupt) (regmodel.Interrupt, error) {
	if !irq.Named() {
		return irq, nil
	}

	existing, ok := s.interrupts[irq.Name]
	if !ok {
		s.interrupts[irq.Name] = irq

		return irq, nil
	}

	if existing != irq {
		return regmodel.Interrupt{}, fmt.Errorf("%w: interrupt %q numbered %d and %d",
			regmodel.ErrConflictingDuplicate, irq.Name, existing.Number, irq.Number)
	}

	s.reused++

	return existing, nil
}

// Stats reports the size of the identity tables.
func (s *Session) Stats() SessionStats {
	return SessionStats{
		UniqueFields:     len(s.fields),
		UniqueInterrupts: len(s.interrupts),
		Reused:           s.reused,
	}
}

// SessionStats summarizes a session's identity tables.
type SessionStats struct {
	UniqueFields     int
	UniqueInterrupts int
	Reused           int
}
