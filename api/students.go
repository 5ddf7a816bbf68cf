package api

type StudentProject struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	ProfessorName string `json:"professorName"`
	Department    string `json:"department"`
	Status        string `json:"status"`
}

type StudentProjectsResponse struct {
	Status
	Projects []StudentProject `json:"projects"`
}

type CVResponse struct {
	Status
	URL   string `json:"url,omitempty"`
	Pages int    `json:"pages,omitempty"`
	Page  int    `json:"page,omitempty"`
	Text  string `json:"text,omitempty"`
}
