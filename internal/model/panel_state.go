package model

import "encoding/json"

// PanelState is the persisted visibility state of the bookmark panel.
type PanelState struct {
	IsCollapsed bool `json:"isCollapsed"`
}

// DefaultPanelState returns the state used on first load: collapsed.
func DefaultPanelState() PanelState {
	return PanelState{IsCollapsed: true}
}

// DecodePanelState parses persisted state.
// Corrupt data, or data without the isCollapsed field, yields the default.
func DecodePanelState(data string) PanelState {
	var raw struct {
		IsCollapsed *bool `json:"isCollapsed"`
	}
	if err := json.Unmarshal([]byte(data), &raw); err != nil || raw.IsCollapsed == nil {
		return DefaultPanelState()
	}
	return PanelState{IsCollapsed: *raw.IsCollapsed}
}

// Encode returns the JSON form of the state.
func (s PanelState) Encode() string {
	data, _ := json.Marshal(s)
	return string(data)
}
