package model

// Models lists every table owned by the assists sync, in migration order.
func Models() []interface{} {
	return []interface{}{
		&SyncStatus{},
		&PageSyncTracker{},
		&AssistRecord{},
	}
}
