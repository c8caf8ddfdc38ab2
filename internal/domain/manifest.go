package domain

// ManifestEntry is the durable record of one processed item. Fields are
// declared in lexical order of their JSON keys so the encoded object has
// sorted keys.
type ManifestEntry struct {
	ContentSHA256 *string `json:"content_sha256"`
	DuplicateOf   *int    `json:"duplicate_of"`
	Error         *string `json:"error"`
	Index         int     `json:"index"`
	OutlinksCount *int    `json:"outlinks_count"`
	OutlinksPath  *string `json:"outlinks_path"`
	RawPath       *string `json:"raw_path"`
	StatusCode    *int    `json:"status_code"`
	TextPath      *string `json:"text_path"`
	URL           string  `json:"url"`
}

// NewManifestEntry seeds an entry with the fields every row carries.
func NewManifestEntry(res *FetchResult) ManifestEntry {
	entry := ManifestEntry{
		Index:      res.Index,
		URL:        res.Locator,
		StatusCode: res.StatusCode,
	}
	if res.Failed() {
		entry.Error = StringPtr(res.Error)
	}
	return entry
}

// IsDuplicate reports whether the entry points at an earlier item.
func (e *ManifestEntry) IsDuplicate() bool {
	return e.DuplicateOf != nil
}
