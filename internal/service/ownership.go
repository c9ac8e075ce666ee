package service

import "github.com/divyanshu1906/CrowdFunding-Website/internal/models"

// CanMutate reports whether userID may update or delete p. Anonymous callers never can.
func CanMutate(userID uint, p models.Project) bool {
	return userID != 0 && p != nil && p.Base().CreatorID == userID
}
