package core

import (
	"errors"
	"fmt"

	"axiapac.com/biometrics/assists/model"
	v1 "axiapac.com/biometrics/biometrics/v1"
	"axiapac.com/biometrics/utils"
	"gorm.io/datatypes"
)

var errMissingExternalID = errors.New("transaction has no id")

// ToAssistRecord maps a remote transaction to its local row. punch_time is stored in UTC.
func ToAssistRecord(tx v1.Transaction) (model.AssistRecord, error) {
	if tx.ID == "" {
		return model.AssistRecord{}, errMissingExternalID
	}

	punchTime, err := utils.ParseISOTime(tx.PunchTime)
	if err != nil {
		return model.AssistRecord{}, fmt.Errorf("transaction %s: invalid punch_time: %w", tx.ID, err)
	}

	record := model.AssistRecord{
		ExternalSyncID:  tx.ID.String(),
		EmpCode:         tx.EmpCode.String(),
		EmpID:           tx.EmpID.String(),
		TerminalSN:      tx.TerminalSN.String(),
		TerminalID:      tx.TerminalID.String(),
		TerminalAlias:   tx.TerminalAlias,
		AreaAlias:       tx.AreaAlias,
		Longitude:       tx.Longitude.Ptr(),
		Latitude:        tx.Latitude.Ptr(),
		PunchTime:       *punchTime,
		PunchTimeLocal:  tx.PunchTimeLocal,
		PunchTimeOrigin: tx.PunchTimeOrigin,
	}
	if uploadTime, err := utils.ParseISOTime(tx.UploadTime); err == nil {
		record.UploadTime = uploadTime
	}
	if len(tx.Raw) > 0 {
		record.RawPayload = datatypes.JSON(tx.Raw)
	}
	return record, nil
}
