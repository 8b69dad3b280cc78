package compatibility

// BreakingChangeBuilder helps construct breaking changes fluently
type BreakingChangeBuilder struct {
	change BreakingChange
}

// NewBreakingChange creates a new breaking change builder
func NewBreakingChange(changeType ChangeType) *BreakingChangeBuilder {
	return &BreakingChangeBuilder{
		change: BreakingChange{
			ChangeType: changeType,
		},
	}
}

func (b *BreakingChangeBuilder) WithImpact(impact Impact) *BreakingChangeBuilder {
	b.change.Impact = impact
	return b
}

func (b *BreakingChangeBuilder) WithLocation(location string) *BreakingChangeBuilder {
	b.change.Location = location
	return b
}

func (b *BreakingChangeBuilder) WithDescription(description string) *BreakingChangeBuilder {
	b.change.Description = description
	return b
}

func (b *BreakingChangeBuilder) WithMitigation(mitigation string) *BreakingChangeBuilder {
	b.change.Mitigation = mitigation
	return b
}

func (b *BreakingChangeBuilder) WithRule(rule string) *BreakingChangeBuilder {
	b.change.Rule = rule
	return b
}

func (b *BreakingChangeBuilder) Build() BreakingChange {
	return b.change
}
