package omdb

// SearchResult is one summary record from a title search.
type SearchResult struct {
	ID        string
	Title     string
	Year      string
	PosterURL string
}

// SearchPage is the first page of a title search, in API order.
type SearchPage struct {
	Items []SearchResult
	Total int // totalResults as reported by the API
}

// MovieDetail is the full record for one title. Fields are kept as the API
// returns them; numeric coercion happens when a movie is added to the watched list.
type MovieDetail struct {
	ID         string
	Title      string
	Year       string
	PosterURL  string
	Plot       string
	Runtime    string // e.g. "152 min"
	Actors     string
	Genre      string
	Director   string
	Released   string
	IMDbRating string // e.g. "9.0" or "N/A"
}

// searchEnvelope is the wire shape of an s= response.
type searchEnvelope struct {
	Response     string         `json:"Response"`
	Error        string         `json:"Error"`
	Search       []searchRecord `json:"Search"`
	TotalResults string         `json:"totalResults"`
}

type searchRecord struct {
	Title  string `json:"Title"`
	Year   string `json:"Year"`
	IMDbID string `json:"imdbID"`
	Type   string `json:"Type"`
	Poster string `json:"Poster"`
}

// detailRecord is the wire shape of an i= response.
type detailRecord struct {
	Response   string `json:"Response"`
	Error      string `json:"Error"`
	Title      string `json:"Title"`
	Year       string `json:"Year"`
	Released   string `json:"Released"`
	Runtime    string `json:"Runtime"`
	Genre      string `json:"Genre"`
	Director   string `json:"Director"`
	Actors     string `json:"Actors"`
	Plot       string `json:"Plot"`
	Poster     string `json:"Poster"`
	IMDbRating string `json:"imdbRating"`
	IMDbID     string `json:"imdbID"`
}
