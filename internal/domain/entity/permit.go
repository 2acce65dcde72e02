package entity

import "time"

// Permit statuses
const (
	PermitStatusDraft       = "draft"
	PermitStatusSubmitted   = "submitted"
	PermitStatusUnderReview = "under_review"
	PermitStatusApproved    = "approved"
	PermitStatusDenied      = "denied"
	PermitStatusClosed      = "closed"
	PermitStatusOnHold      = "on_hold"
	PermitStatusExpired     = "expired"
	PermitStatusCancelled   = "cancelled"
)

// PermitStatuses lists every permit status, for machine construction and
// rollup bucket initialization.
var PermitStatuses = []string{
	PermitStatusDraft,
	PermitStatusSubmitted,
	PermitStatusUnderReview,
	PermitStatusApproved,
	PermitStatusDenied,
	PermitStatusClosed,
	PermitStatusOnHold,
	PermitStatusExpired,
	PermitStatusCancelled,
}

// Department review states
const (
	ReviewStatusPending               = "pending"
	ReviewStatusInReview              = "in_review"
	ReviewStatusApproved              = "approved"
	ReviewStatusConditionallyApproved = "conditionally_approved"
	ReviewStatusRejected              = "rejected"
	ReviewStatusRevisionsRequested    = "revisions_requested"
)

// Comment visibility scopes
const (
	CommentPublic   = "public"
	CommentInternal = "internal"
	CommentPrivate  = "private"
)

// Applicant identifies who the permit is for
type Applicant struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
}

// StatusHistoryEntry is one append-only audit record of a status transition
type StatusHistoryEntry struct {
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	ChangedBy  string    `json:"changedBy"`
	ChangedAt  time.Time `json:"changedAt"`
	Notes      string    `json:"notes,omitempty"`
}

// ReviewHistoryEntry is one append-only record on a department review
type ReviewHistoryEntry struct {
	FromStatus string    `json:"fromStatus"`
	ToStatus   string    `json:"toStatus"`
	ReviewedBy string    `json:"reviewedBy"`
	ReviewedAt time.Time `json:"reviewedAt"`
	Notes      string    `json:"notes,omitempty"`
}

// DepartmentReview is one department's sub-workflow embedded in a permit,
// seeded from the permit type's configuration at creation.
type DepartmentReview struct {
	Department       string               `json:"department"`
	Required         bool                 `json:"required"`
	Status           string               `json:"status"`
	ReviewedBy       string               `json:"reviewedBy,omitempty"`
	ReviewedAt       *time.Time           `json:"reviewedAt,omitempty"`
	Notes            string               `json:"notes,omitempty"`
	RequiresReReview bool                 `json:"requiresReReview,omitempty"`
	ReviewHistory    []ReviewHistoryEntry `json:"reviewHistory,omitempty"`
}

// IsTerminal reports whether the review has reached a decision state
func (r DepartmentReview) IsTerminal() bool {
	switch r.Status {
	case ReviewStatusApproved, ReviewStatusConditionallyApproved, ReviewStatusRejected, ReviewStatusRevisionsRequested:
		return true
	}
	return false
}

// IsApproving reports whether the review counts toward permit approval
func (r DepartmentReview) IsApproving() bool {
	return r.Status == ReviewStatusApproved || r.Status == ReviewStatusConditionallyApproved
}

// ReviewComment is a visibility-scoped comment attached to a department review
type ReviewComment struct {
	ID         int64     `json:"id"`
	PermitID   int64     `json:"permitId"`
	Department string    `json:"department"`
	AuthorID   string    `json:"authorId"`
	Visibility string    `json:"visibility"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"createdAt"`
}

// SLA tracks completion targets for a permit
type SLA struct {
	TargetDays         int        `json:"targetDays,omitempty"`
	ExpectedCompletion *time.Time `json:"expectedCompletion,omitempty"`
	ActualCompletion   *time.Time `json:"actualCompletion,omitempty"`
	Overdue            bool       `json:"overdue,omitempty"`
}

// ProjectStats is the aggregate rollup a project permit keeps over its
// children. ChildrenByStatus must reconcile with the live status
// distribution of the child permits.
type ProjectStats struct {
	TotalChildren    int            `json:"totalChildren"`
	ChildrenByStatus map[string]int `json:"childrenByStatus,omitempty"`
}

// ViewRecord tracks when a user last viewed a permit, for unread-comment
// indicators.
type ViewRecord struct {
	UserID   string    `json:"userId"`
	ViewedAt time.Time `json:"viewedAt"`
}

// Permit is the central aggregate of the lifecycle engine.
type Permit struct {
	ID             int64  `json:"id"`
	MunicipalityID string `json:"municipalityId"`
	PermitNumber   string `json:"permitNumber"`
	PropertyID     string `json:"propertyId"`
	PermitTypeID   int64  `json:"permitTypeId"`
	Type           string `json:"type"`
	Status         string `json:"status"`

	Applicant    Applicant `json:"applicant"`
	ContractorID string    `json:"contractorId,omitempty"`
	SubmittedBy  string    `json:"submittedBy"`

	Fees         []FeeLineItem     `json:"fees,omitempty"`
	FeeSnapshot  *FeeSnapshot      `json:"feeScheduleSnapshot,omitempty"`
	PermitData   PermitData        `json:"permitData"`
	CustomFields map[string]string `json:"customFields,omitempty"`

	DepartmentReviews []DepartmentReview `json:"departmentReviews,omitempty"`
	SLA               SLA                `json:"sla"`

	IsProject      bool          `json:"isProject"`
	ParentPermitID *int64        `json:"parentPermitId,omitempty"`
	ChildPermits   []int64       `json:"childPermits,omitempty"`
	ProjectStats   *ProjectStats `json:"projectStats,omitempty"`

	StatusHistory []StatusHistoryEntry `json:"statusHistory,omitempty"`
	ViewedBy      []ViewRecord         `json:"viewedBy,omitempty"`

	SubmittedAt     *time.Time `json:"submittedAt,omitempty"`
	ReviewStartDate *time.Time `json:"reviewStartDate,omitempty"`
	ApprovalDate    *time.Time `json:"approvalDate,omitempty"`
	ApprovedBy      string     `json:"approvedBy,omitempty"`
	ExpirationDate  *time.Time `json:"expirationDate,omitempty"`
	DeniedBy        string     `json:"deniedBy,omitempty"`
	DenialReason    string     `json:"denialReason,omitempty"`
	CompletionDate  *time.Time `json:"completionDate,omitempty"`

	Lifecycle Lifecycle `json:"lifecycle"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TotalDue sums unpaid, non-refunded fee line items
func (p *Permit) TotalDue() float64 {
	var due float64
	for _, fee := range p.Fees {
		if !fee.Paid && !fee.Refunded && !fee.Optional {
			due += fee.Amount
		}
	}
	return due
}

// FullyPaid reports whether every required fee line item is paid
func (p *Permit) FullyPaid() bool {
	for _, fee := range p.Fees {
		if !fee.Optional && !fee.Paid && !fee.Refunded {
			return false
		}
	}
	return true
}

// ReviewFor returns a pointer to the named department review
func (p *Permit) ReviewFor(department string) *DepartmentReview {
	for i := range p.DepartmentReviews {
		if p.DepartmentReviews[i].Department == department {
			return &p.DepartmentReviews[i]
		}
	}
	return nil
}

// MarkViewed upserts the caller's last-viewed timestamp
func (p *Permit) MarkViewed(userID string, at time.Time) {
	for i := range p.ViewedBy {
		if p.ViewedBy[i].UserID == userID {
			p.ViewedBy[i].ViewedAt = at
			return
		}
	}
	p.ViewedBy = append(p.ViewedBy, ViewRecord{UserID: userID, ViewedAt: at})
}
