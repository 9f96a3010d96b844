package typeinfer

import "github.com/student/stackscript/internal/types"

// scopeStack is the name→DataType binding stack InfereIdentifierTypes walks
// the tree with. Frames are pushed on Block entry and popped on exit;
// lookup searches from the innermost frame outward, so an inner let shadows
// an outer one of the same name.
type scopeStack struct {
	frames []map[string]types.DataType
}

func newScopeStack() *scopeStack {
	return &scopeStack{}
}

func (s *scopeStack) push(frame map[string]types.DataType) {
	s.frames = append(s.frames, frame)
}

func (s *scopeStack) pop() {
	s.frames = s.frames[:len(s.frames)-1]
}

func (s *scopeStack) bind(name string, t types.DataType) {
	s.frames[len(s.frames)-1][name] = t
}

func (s *scopeStack) lookup(name string) (types.DataType, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if t, ok := s.frames[i][name]; ok {
			return t, true
		}
	}
	return types.DataType{}, false
}

// builtinFrame is preloaded at the bottom of every scope stack: the
// arithmetic, relational and boolean operators, typed as ordinary
// functions so Call dispatch needs no special case to find them.
func builtinFrame() map[string]types.DataType {
	intBinary := types.Function([]types.DataType{types.Simple(types.Int), types.Simple(types.Int)}, types.Simple(types.Int), false)
	relBinary := types.Function([]types.DataType{types.Simple(types.Int), types.Simple(types.Int)}, types.Simple(types.Bool), false)
	boolBinary := types.Function([]types.DataType{types.Simple(types.Bool), types.Simple(types.Bool)}, types.Simple(types.Bool), false)

	return map[string]types.DataType{
		"+": intBinary,
		"-": intBinary,
		"*": intBinary,
		"/": intBinary,
		"%": intBinary,

		"<":  relBinary,
		">":  relBinary,
		"<=": relBinary,
		">=": relBinary,
		"==": relBinary,
		"!=": relBinary,

		"&&": boolBinary,
		"||": boolBinary,
	}
}
