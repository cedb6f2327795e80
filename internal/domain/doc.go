// Package domain contains the core scheduling entities and value objects:
// review schedules, history records, subscription tiers and review outcomes.
// It has no dependency on storage or transport and is shared by every other
// layer of the application.
package domain
