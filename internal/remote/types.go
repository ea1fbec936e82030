package remote

// Document is the remote store's representation of a stored item,
// returned by the upload endpoint and the unused-items listing.
type Document struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Extension string `json:"extension"`
	MIMEType  string `json:"mime_type"`
	CreatedAt int64  `json:"created_at"`
}

// Section is one named text section produced by external source
// conversion. A single source reference (e.g. a wiki page URL) may
// convert into any number of sections, including zero.
type Section struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// UploadConfig holds the session-scoped upload limits. Fetched once at
// activation and cached; the server is free to change them between
// sessions but not within one.
type UploadConfig struct {
	SizeLimitBytes  int64 `json:"file_size_limit"`
	BatchCountLimit int   `json:"batch_count_limit"`
	TotalCountLimit int   `json:"file_upload_limit"`
}

// ProgressFunc reports upload progress as bytes sent out of total.
// Called repeatedly while the request body streams out.
type ProgressFunc func(sent, total int64)

type convertRequest struct {
	Source string `json:"source"`
}

type convertResponse struct {
	Sections []Section `json:"sections"`
}

type unusedListResponse struct {
	Items []Document `json:"items"`
}

type supportTypesResponse struct {
	AllowedExtensions []string `json:"allowed_extensions"`
}
