package models

// CommandDef maps a symbolic command name to the zone it targets and the opcode sent to it.
type CommandDef struct {
	Name   string `json:"name"`
	Zone   uint8  `json:"zone"`   // 1..9 on the relay side
	Opcode uint8  `json:"opcode"` // 0..255
}
