package domain

import "strconv"

// Room ids address broadcast groups in the connection registry. Every user
// has a personal room used for direct delivery and presence; every group has
// a fan-out room. The prefixes keep the two id spaces from colliding.

// UserRoom returns the personal room id for a user.
func UserRoom(userID int64) string {
	return "user:" + strconv.FormatInt(userID, 10)
}

// GroupRoom returns the fan-out room id for a group.
func GroupRoom(groupID int64) string {
	return "group:" + strconv.FormatInt(groupID, 10)
}
