// Package events provides the item lifecycle event types and a small
// dispatch mechanism between the components that receive them.
//
// The primary components are:
// - ItemEvent: an item was created or deleted in the content service
// - EventHandler: Interface for components that can handle events
// - EventEmitter: Interface for components that can emit events
package events
