/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package traffic

import (
	"github.com/go-openapi/strfmt"
	"github.com/suparena/docstore/registry"
)

// Collection the Traffic entity is bound to.
const (
	DatabaseName   = "Traffic"
	CollectionName = "App1Traffic"
)

// ApplicationIDHeader is the request header naming the calling application.
const ApplicationIDHeader = "application-id"

func init() {
	registry.Bind[Traffic](DatabaseName, CollectionName)
}

// Traffic is one recorded HTTP request.
type Traffic struct {
	ID          string            `json:"id,omitempty"`
	RequestID   strfmt.UUID       `json:"RequestId"`
	ElapsedMs   int64             `json:"ElapsedMs"`
	RequestPath string            `json:"RequestPath"`
	Method      string            `json:"Method"`
	Ip          string            `json:"Ip"`
	StatusCode  int               `json:"StatusCode"`
	Epoch       int64             `json:"Epoch"`
	Headers     map[string]string `json:"Headers"`
}

// ApplicationID returns the application-id header, if present.
func (t Traffic) ApplicationID() string {
	return t.Headers[ApplicationIDHeader]
}
