package mongo

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/poiesic/persimmon/core"
	"github.com/poiesic/persimmon/storage"
)

func toBSON(attrs core.Attributes) bson.D {
	d := make(bson.D, 0, attrs.Len())
	for _, k := range attrs.Keys() {
		d = append(d, bson.E{Key: k, Value: toBSONValue(attrs.Value(k))})
	}
	return d
}

func toBSONValue(v core.Value) any {
	switch v.Kind() {
	case core.KindBool:
		return v.Bool()
	case core.KindInt:
		return v.Int()
	case core.KindFloat:
		return v.Float()
	case core.KindString:
		return v.Str()
	case core.KindTime:
		return v.Time()
	case core.KindList:
		items := v.List()
		a := make(bson.A, len(items))
		for i, item := range items {
			a[i] = toBSONValue(item)
		}
		return a
	case core.KindMap:
		return toBSON(v.Map())
	}
	return nil
}

// fromBSON converts a decoded document, lifting _id into the document id.
func fromBSON(raw bson.D) (storage.Document, error) {
	var doc storage.Document
	for _, e := range raw {
		if e.Key == idField {
			doc.ID = fmt.Sprint(e.Value)
			continue
		}
		v, err := fromBSONValue(e.Value)
		if err != nil {
			return storage.Document{}, fmt.Errorf("%w: field %q: %w", storage.ErrSerializationFailed, e.Key, err)
		}
		doc.Fields.Set(e.Key, v)
	}
	return doc, nil
}

func fromBSONValue(v any) (core.Value, error) {
	switch x := v.(type) {
	case nil, bson.Null, bson.Undefined:
		return core.Null(), nil
	case bool:
		return core.Bool(x), nil
	case int32:
		return core.Int(int64(x)), nil
	case int64:
		return core.Int(x), nil
	case float64:
		return core.Float(x), nil
	case string:
		return core.String(x), nil
	case bson.DateTime:
		return core.Time(x.Time()), nil
	case time.Time:
		return core.Time(x), nil
	case bson.ObjectID:
		return core.String(x.Hex()), nil
	case bson.A:
		items := make([]core.Value, len(x))
		for i, item := range x {
			iv, err := fromBSONValue(item)
			if err != nil {
				return core.Value{}, err
			}
			items[i] = iv
		}
		return core.List(items...), nil
	case bson.D:
		var attrs core.Attributes
		for _, e := range x {
			ev, err := fromBSONValue(e.Value)
			if err != nil {
				return core.Value{}, err
			}
			attrs.Set(e.Key, ev)
		}
		return core.Map(attrs), nil
	}
	return core.Value{}, fmt.Errorf("unsupported bson type %T", v)
}
