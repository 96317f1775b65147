package models

type PlanType string
type AddOnType string
type BillingCycle string
type FileType string
type PeriodType string
type TaskStatus string
type SprintStatus string
type TransactionStatus string
type OperationType string

const (
	PlanFree     PlanType = "free"
	PlanStarter  PlanType = "starter"
	PlanTeam     PlanType = "team"
	PlanBusiness PlanType = "business"

	AddOnStorage    AddOnType = "storage"
	AddOnVideoAudio AddOnType = "video_audio"
	AddOnUsers      AddOnType = "users"
	AddOnProjects   AddOnType = "projects"
	AddOnFeatures   AddOnType = "features"
	AddOnCombo      AddOnType = "combo"

	BillingMonthly  BillingCycle = "monthly"
	BillingYearly   BillingCycle = "yearly"
	BillingLifetime BillingCycle = "lifetime"

	FileTypeImage    FileType = "image"
	FileTypeDocument FileType = "document"
	FileTypeVideo    FileType = "video"
	FileTypeAudio    FileType = "audio"
	FileTypeArchive  FileType = "archive"
	FileTypeOther    FileType = "other"

	PeriodDaily   PeriodType = "daily"
	PeriodWeekly  PeriodType = "weekly"
	PeriodMonthly PeriodType = "monthly"

	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusInReview   TaskStatus = "in_review"
	TaskStatusDone       TaskStatus = "done"
	TaskStatusBlocked    TaskStatus = "blocked"

	SprintStatusPlanned   SprintStatus = "planned"
	SprintStatusActive    SprintStatus = "active"
	SprintStatusCompleted SprintStatus = "completed"

	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"

	OperationSubscription OperationType = "subscription"
	OperationAddOn        OperationType = "addon"
	OperationUpgrade      OperationType = "upgrade"
)

// EventLogin - тип события, по которому считается login_count
const EventLogin = "login"

func (p PlanType) IsValid() bool {
	switch p {
	case PlanFree, PlanStarter, PlanTeam, PlanBusiness:
		return true
	}
	return false
}

func (t AddOnType) IsValid() bool {
	switch t {
	case AddOnStorage, AddOnVideoAudio, AddOnUsers, AddOnProjects, AddOnFeatures, AddOnCombo:
		return true
	}
	return false
}

func (c BillingCycle) IsValid() bool {
	switch c {
	case BillingMonthly, BillingYearly, BillingLifetime:
		return true
	}
	return false
}

func (f FileType) IsValid() bool {
	switch f {
	case FileTypeImage, FileTypeDocument, FileTypeVideo, FileTypeAudio, FileTypeArchive, FileTypeOther:
		return true
	}
	return false
}

func (p PeriodType) IsValid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return true
	}
	return false
}
