package model

import (
	"time"

	"gorm.io/datatypes"
)

// AssistRecord is the local mirror of one biometric punch.
type AssistRecord struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	ExternalSyncID  string         `gorm:"size:64;not null;uniqueIndex:idx_assist_records_external_sync_id" json:"externalSyncId"`
	EmpCode         string         `gorm:"size:64;index:idx_assist_records_emp_code" json:"empCode"`
	EmpID           string         `gorm:"size:64" json:"empId"`
	TerminalSN      string         `gorm:"size:64" json:"terminalSn"`
	TerminalID      string         `gorm:"size:64" json:"terminalId"`
	TerminalAlias   string         `gorm:"size:128" json:"terminalAlias"`
	AreaAlias       string         `gorm:"size:128" json:"areaAlias"`
	Longitude       *float64       `json:"longitude"`
	Latitude        *float64       `json:"latitude"`
	UploadTime      *time.Time     `json:"uploadTime"`
	PunchTime       time.Time      `gorm:"not null;index:idx_assist_records_punch_time" json:"punchTime"`
	PunchTimeLocal  string         `gorm:"size:32" json:"punchTimeLocal"`
	PunchTimeOrigin string         `gorm:"size:40" json:"punchTimeOrigin"`
	RawPayload      datatypes.JSON `json:"-"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func (AssistRecord) TableName() string {
	return "assist_records"
}

// MutableColumns are overwritten when a known external_sync_id is seen again.
var MutableColumns = []string{
	"emp_code",
	"emp_id",
	"terminal_sn",
	"terminal_id",
	"terminal_alias",
	"area_alias",
	"longitude",
	"latitude",
	"upload_time",
	"punch_time",
	"punch_time_local",
	"punch_time_origin",
	"raw_payload",
	"updated_at",
}
