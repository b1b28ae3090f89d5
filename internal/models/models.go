package models

// RelationalModels lists the gorm models migrated into PostgreSQL.
func RelationalModels() []interface{} {
	return []interface{}{
		&User{},
		&Submission{},
		&LikeRecord{},
		&Notification{},
	}
}
