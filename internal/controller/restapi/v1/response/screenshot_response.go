package response

type GenerateCached struct {
	Status   string `json:"status"`
	ImageURL string `json:"image_url"`
}

type GenerateAccepted struct {
	Status         string `json:"status"`
	TaskID         string `json:"task_id"`
	CheckStatusURL string `json:"check_status_url"`
}

type TaskStatus struct {
	TaskID       string  `json:"task_id"`
	Status       string  `json:"status"`
	ImageURL     *string `json:"image_url,omitempty"`
	ErrorMessage *string `json:"error_message,omitempty"`
}
