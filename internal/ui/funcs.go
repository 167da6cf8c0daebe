package ui

import (
	"encoding/json"
	"html/template"
)

func GetFuncMap() template.FuncMap {
	return template.FuncMap{
		// json сериализует значение для вставки в <script> блок
		"json": func(v interface{}) (template.JS, error) {
			data, err := json.Marshal(v)
			if err != nil {
				return "", err
			}
			return template.JS(data), nil
		},
	}
}
