package uploads

type uploadResponse struct {
	OK       bool   `json:"ok"`
	URL      string `json:"url"`
	Type     string `json:"type"`
	Filename string `json:"filename"`
}
