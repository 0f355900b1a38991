package bridge

// BrowseRequest positions the catalog cursor.
type BrowseRequest struct {
	Hierarchy      string `json:"hierarchy"`
	ZoneOrOutputID string `json:"zone_or_output_id,omitempty"`
	ItemKey        string `json:"item_key,omitempty"`
	PopAll         bool   `json:"pop_all,omitempty"`
}

// ListInfo describes the catalog level the cursor is on.
type ListInfo struct {
	Title         string `json:"title"`
	Level         int    `json:"level"`
	Count         int    `json:"count"`
	DisplayOffset int    `json:"display_offset"`
}

// BrowseResult is the reply to a browse call. Action is "list" when the
// cursor moved to a new list.
type BrowseResult struct {
	Action string   `json:"action"`
	List   ListInfo `json:"list"`
}

// LoadRequest fetches a page of the current list.
type LoadRequest struct {
	Hierarchy        string `json:"hierarchy"`
	Offset           int    `json:"offset"`
	SetDisplayOffset int    `json:"set_display_offset"`
}

// Item is one catalog entry.
type Item struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	ItemKey  string `json:"item_key"`
	Hint     string `json:"hint,omitempty"`
}

// Page is the reply to a load call.
type Page struct {
	List   ListInfo `json:"list"`
	Offset int      `json:"offset"`
	Items  []Item   `json:"items"`
}

type controlParams struct {
	Zone    string `json:"zone_or_output_id"`
	Control string `json:"control"`
}

type statusParams struct {
	Message string `json:"message"`
	IsError bool   `json:"is_error"`
}
