package vm

// Value is the only numeric type of the expression language.
type Value = uint64

// Names lists the recognised variable identifiers.
//
//	r  quantisation range (1 << bit depth)
//	~  sample rate
//	n  current note number, 0 = none
//	v  current note velocity, 0 = none
//	t  tick since the last note-on from silence (or reset)
//	m  t divided by samples per millisecond
//	q  t divided by samples per 128th of a beat
const Names = "r~nvtmq"

var recognised [128]bool

func init() {
	for i := 0; i < len(Names); i++ {
		recognised[Names[i]] = true
	}
}

// IsVariable reports whether name is a recognised identifier.
func IsVariable(name byte) bool {
	return name < 128 && recognised[name]
}

// Variables is the fixed table of variable values, indexed by ASCII code.
// Only entries named in Names are ever read or written.
type Variables [128]Value

// Set writes a variable. Unrecognised names are ignored.
func (vt *Variables) Set(name byte, v Value) {
	if IsVariable(name) {
		vt[name] = v
	}
}

// Get reads a variable. Unrecognised names read as 0.
func (vt *Variables) Get(name byte) Value {
	if IsVariable(name) {
		return vt[name]
	}
	return 0
}
