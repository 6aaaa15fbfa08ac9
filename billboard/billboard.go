package billboard

// Billboard is a displayable billboard record. Username is the owning
// account, stamped by the server when the billboard is created; clients
// cannot choose it.
type Billboard struct {
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
	Content  string `json:"content,omitempty"`
}

// Schedule places a billboard into the display rotation. The timing fields
// are carried through to persistence untouched; the dispatch core only cares
// about which billboard a schedule points at.
type Schedule struct {
	BillboardName string `json:"billboard_name"`
	Day           string `json:"day,omitempty"`
	StartMinute   int    `json:"start_minute,omitempty"`
	Duration      int    `json:"duration,omitempty"`
	Repeat        int    `json:"repeat,omitempty"`
}
