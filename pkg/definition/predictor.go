package definition

// Prediction is the hypothetical outcome of firing a trigger
type Prediction struct {
	CanFire     bool
	TargetState string
	Guard       string
	Reason      string
}

// Predictor answers "given a definition, a current state and a hypothetical
// trigger, would the trigger fire and where would it land". The hosting
// runtime implements it against its execution engine; TablePredictor is the
// default that reads the declared transition table.
type Predictor interface {
	Predict(def *Definition, state, trigger string) Prediction
}

// GuardEvaluator decides whether a named guard currently permits a transition
type GuardEvaluator func(guard string) bool

// TablePredictor predicts transitions from the definition's transition table
type TablePredictor struct {
	// Guards evaluates guard expressions; nil treats every guard as satisfied
	Guards GuardEvaluator
}

// Predict implements Predictor
func (p TablePredictor) Predict(def *Definition, state, trigger string) Prediction {
	if def == nil {
		return Prediction{Reason: "no definition"}
	}
	if !def.HasState(state) {
		return Prediction{Reason: "state " + state + " is not defined"}
	}
	if !def.HasTrigger(trigger) {
		return Prediction{Reason: "trigger " + trigger + " is not defined"}
	}

	t, ok := def.Transition(state, trigger)
	if !ok {
		return Prediction{Reason: "trigger " + trigger + " is not permitted in state " + state}
	}
	if t.Guard != "" && p.Guards != nil && !p.Guards(t.Guard) {
		return Prediction{TargetState: t.To, Guard: t.Guard, Reason: "guard " + t.Guard + " not satisfied"}
	}

	return Prediction{CanFire: true, TargetState: t.To, Guard: t.Guard}
}
