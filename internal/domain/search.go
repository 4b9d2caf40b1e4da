package domain

// SearchResult is a cross-level name match. ParentChain lists ancestor codes
// nearest first, ending at the region.
type SearchResult struct {
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Level       AdminLevel `json:"level"`
	ParentChain []string   `json:"parent_chain"`
}
