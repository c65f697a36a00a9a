// Package memory provides an in-process domain.PropertyStore.
package memory
