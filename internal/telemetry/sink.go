package telemetry

// Sink receives rows from the core components. Implementations run on the
// simulation goroutine and must not block.
type Sink interface {
	WriteBlackout(BlackoutRow)
	WriteDamage(DamageRow)
	WriteSanity([]SanityRow)
	WriteState(SessionStateRow)
}

// Discard drops every row.
type Discard struct{}

func (Discard) WriteBlackout(BlackoutRow)  {}
func (Discard) WriteDamage(DamageRow)      {}
func (Discard) WriteSanity([]SanityRow)    {}
func (Discard) WriteState(SessionStateRow) {}

// Memory collects rows in slices, mainly for tests.
type Memory struct {
	Blackouts []BlackoutRow
	Damage    []DamageRow
	Sanity    []SanityRow
	States    []SessionStateRow
}

func (m *Memory) WriteBlackout(r BlackoutRow)  { m.Blackouts = append(m.Blackouts, r) }
func (m *Memory) WriteDamage(r DamageRow)      { m.Damage = append(m.Damage, r) }
func (m *Memory) WriteSanity(rs []SanityRow)   { m.Sanity = append(m.Sanity, rs...) }
func (m *Memory) WriteState(r SessionStateRow) { m.States = append(m.States, r) }
