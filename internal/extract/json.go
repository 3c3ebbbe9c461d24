package extract

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// Member 对象中的一个键值对
type Member struct {
	Key   string
	Value any
}

// Object 保持键顺序的JSON对象
// 值的类型: string, json.Number, bool, nil, Object, []any
type Object []Member

// Get 按键取值
func (o Object) Get(key string) (any, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

// set 重复键保留首次出现的位置,值以最后一次为准
func (o Object) set(key string, value any) Object {
	for i := range o {
		if o[i].Key == key {
			o[i].Value = value
			return o
		}
	}
	return append(o, Member{Key: key, Value: value})
}

// MarshalJSON 按原始键顺序输出
func (o Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(m.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// ParseJSON 解析单个JSON文档,对象按原始键顺序保存
func ParseJSON(raw string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	value, err := decodeValue(dec)
	if err != nil {
		return nil, err
	}

	// 不允许尾随内容
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("JSON后存在多余内容")
	}
	return value, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		obj := Object{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("对象键不是字符串: %v", keyTok)
			}
			value, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			obj = obj.set(key, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return obj, nil

	case '[':
		arr := []any{}
		for dec.More() {
			value, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}
			arr = append(arr, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return arr, nil
	}

	return nil, fmt.Errorf("意外的JSON分隔符: %v", delim)
}

// FindNested 深度优先查找第一个非null的别名键
// 每个对象先按别名顺序检查自身的键,再按键顺序递归进入各个值
func FindNested(value any, keys ...string) any {
	switch v := value.(type) {
	case Object:
		for _, key := range keys {
			if found, ok := v.Get(key); ok && found != nil {
				return found
			}
		}
		for _, m := range v {
			if found := FindNested(m.Value, keys...); found != nil {
				return found
			}
		}
	case []any:
		for _, item := range v {
			if found := FindNested(item, keys...); found != nil {
				return found
			}
		}
	}
	return nil
}
