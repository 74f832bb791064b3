package crm

// loginResponse is the body of POST /api/v1/Auth/Login.
type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ActivityRecord mirrors GET /api/v1/Activity/{id}/GetFull. Only the
// fields the pipeline reads are mapped; the CRM returns many more.
type ActivityRecord struct {
	ID           int64  `json:"id"`
	Subject      string `json:"subject"`
	Description  string `json:"description"`
	SubTypeID    int64  `json:"subTypeId"`
	OwnerID      int64  `json:"ownerId"`
	CompanyID    int64  `json:"companyId"`
	Status       int    `json:"status"`
	Priority     int    `json:"priority"`
	ActivityDate string `json:"activityDate"`
}

// activityUpdate is the body of PUT /api/v1/Activity/{id}. The CRM
// replaces the description field wholesale.
type activityUpdate struct {
	Description *string `json:"description,omitempty"`
	Status      *int    `json:"status,omitempty"`
}

// CRM activity status codes, as returned by GetFull.
const (
	StatusActive     = 1
	StatusInProgress = 2
	StatusCompleted  = 3
)
