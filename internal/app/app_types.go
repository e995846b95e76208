package app

// DataConnView is the frontend-safe view of a data connection (no password).
type DataConnView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Driver   string `json:"driver"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Database string `json:"database"`
	Username string `json:"username"`
	SSLMode  string `json:"sslMode"`
}

// CreateDataConnInput is the input for creating a data connection.
type CreateDataConnInput struct {
	Name      string `json:"name"`
	Driver    string `json:"driver"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Database  string `json:"database"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	SSLMode   string `json:"sslMode"`
	ExtraJSON string `json:"extraJson"`
}

// DropInput is a finished drag gesture as the frontend reports it.
// Exactly one of Item (palette) and NodeID (existing node) is set.
// TargetType is "page", "node", "delete" or empty when dropped nowhere.
type DropInput struct {
	Item       string `json:"item"`
	NodeID     string `json:"nodeId"`
	TargetType string `json:"targetType"`
	TargetID   string `json:"targetId"`
}

// DropResult tells the frontend what a drop did.
type DropResult struct {
	Action  string   `json:"action"`
	PageID  string   `json:"pageId"`
	NodeID  string   `json:"nodeId,omitempty"` // new node for palette drops
	Removed []string `json:"removed,omitempty"`
	Message string   `json:"message,omitempty"` // user-facing rejection text
}

// HistoryView is the undo/redo state for the toolbar.
type HistoryView struct {
	CanUndo bool `json:"canUndo"`
	CanRedo bool `json:"canRedo"`
	Dirty   bool `json:"dirty"`
}

// EditorState is what the frontend renders after any change.
type EditorState struct {
	Path       string             `json:"path"`
	ActivePage string             `json:"activePage"`
	Selected   []string           `json:"selected"`
	Remaining  map[string]float64 `json:"remaining"`
	History    HistoryView        `json:"history"`
}
