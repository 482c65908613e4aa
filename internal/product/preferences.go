package product

import "slices"

// Goal informs downstream scoring; the classifier ignores it.
type Goal string

const (
	GoalMaintain     Goal = "maintain"
	GoalLoseWeight   Goal = "lose_weight"
	GoalGainMuscle   Goal = "gain_muscle"
	GoalEatHealthier Goal = "eat_healthier"
)

// Valid reports whether g is a known goal. The empty goal is accepted.
func (g Goal) Valid() bool {
	switch g {
	case "", GoalMaintain, GoalLoseWeight, GoalGainMuscle, GoalEatHealthier:
		return true
	}
	return false
}

// UserPreferences holds the avoid lists and calorie ceiling of one identity.
type UserPreferences struct {
	AvoidedIngredients       []string `json:"avoidedIngredients" yaml:"avoided" mapstructure:"avoided"`
	CustomAvoidedIngredients []string `json:"customAvoidedIngredients" yaml:"custom" mapstructure:"custom"`
	MaxCalories              *float64 `json:"maxCalories,omitempty" yaml:"maxcalories,omitempty" mapstructure:"maxcalories"`
	Goal                     Goal     `json:"goal,omitempty" yaml:"goal" mapstructure:"goal"`
}

// Clone returns a deep copy of the preferences.
func (p UserPreferences) Clone() UserPreferences {
	c := p
	c.AvoidedIngredients = slices.Clone(p.AvoidedIngredients)
	c.CustomAvoidedIngredients = slices.Clone(p.CustomAvoidedIngredients)
	if p.MaxCalories != nil {
		v := *p.MaxCalories
		c.MaxCalories = &v
	}
	return c
}

// AvoidTerms returns the predefined terms followed by the custom ones.
func (p UserPreferences) AvoidTerms() []string {
	return slices.Concat(p.AvoidedIngredients, p.CustomAvoidedIngredients)
}
