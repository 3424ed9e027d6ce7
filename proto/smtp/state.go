package smtp

// State is one direction's position in the byte-driven line state
// machine.
type State int

const (
	StateCmd State = iota
	StateCmdReturn
	StateDataHeader
	StateDataHeaderReturn
	StateDataHeaderDone
	StateData
	StateDataReturn
	StateIgnore
	StateTLSOK
	StateTLSOKReturn
	StateTLS
	StateMime
	StateMimeReturn
	StateMimeDone
	StateMimeData
	StateMimeDataReturn
)

// returnStateFor maps a line-accumulating base state to the state
// entered on CR; the matching _RETURN state dispatches the line once
// the LF arrives.
func returnStateFor(s State) (State, bool) {
	switch s {
	case StateCmd:
		return StateCmdReturn, true
	case StateDataHeader:
		return StateDataHeaderReturn, true
	case StateData:
		return StateDataReturn, true
	case StateTLSOK:
		return StateTLSOKReturn, true
	case StateMime:
		return StateMimeReturn, true
	case StateMimeData:
		return StateMimeDataReturn, true
	default:
		return s, false
	}
}

// baseStateFor is the inverse of returnStateFor.
func baseStateFor(s State) State {
	switch s {
	case StateCmdReturn:
		return StateCmd
	case StateDataHeaderReturn:
		return StateDataHeader
	case StateDataReturn:
		return StateData
	case StateTLSOKReturn:
		return StateTLSOK
	case StateMimeReturn:
		return StateMime
	case StateMimeDataReturn:
		return StateMimeData
	default:
		return s
	}
}

func isReturnState(s State) bool {
	switch s {
	case StateCmdReturn, StateDataHeaderReturn, StateDataReturn, StateTLSOKReturn, StateMimeReturn, StateMimeDataReturn:
		return true
	default:
		return false
	}
}
