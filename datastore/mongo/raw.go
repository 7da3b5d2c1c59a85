/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package mongo

import (
	"github.com/suparena/docstore/errors"
	"github.com/suparena/docstore/query"
	"go.mongodb.org/mongo-driver/bson"
)

// paramMarker is spliced into the extended JSON in place of a placeholder and
// swapped for the bound value after parsing.
const paramMarker = "__docstore_param__"

// compileRaw parses an extended JSON filter document and binds its "@name"
// placeholders. Placeholders stand for whole values, e.g. {"Method": @method}.
func compileRaw(raw *query.Raw) (bson.D, error) {
	if err := raw.Validate(); err != nil {
		return nil, err
	}
	values, err := raw.Values()
	if err != nil {
		return nil, err
	}

	text, _ := raw.Bind(func(name string) string {
		return `"` + paramMarker + name + `"`
	})

	var filter bson.D
	if err := bson.UnmarshalExtJSON([]byte(text), false, &filter); err != nil {
		return nil, errors.NewValidationError("query", "raw query must be an extended JSON filter document: "+err.Error())
	}

	bound := make(map[string]any, len(values))
	for name, av := range values {
		v, err := toBSON(av)
		if err != nil {
			return nil, errors.NewValidationError(name, err.Error())
		}
		bound[paramMarker+name] = v
	}
	return bindParams(filter, bound).(bson.D), nil
}

func bindParams(v any, bound map[string]any) any {
	switch tv := v.(type) {
	case string:
		if value, ok := bound[tv]; ok {
			return value
		}
		return tv
	case bson.D:
		out := make(bson.D, len(tv))
		for i, e := range tv {
			out[i] = bson.E{Key: e.Key, Value: bindParams(e.Value, bound)}
		}
		return out
	case bson.M:
		out := make(bson.M, len(tv))
		for k, item := range tv {
			out[k] = bindParams(item, bound)
		}
		return out
	case bson.A:
		out := make(bson.A, len(tv))
		for i, item := range tv {
			out[i] = bindParams(item, bound)
		}
		return out
	}
	return v
}
