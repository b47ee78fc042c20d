package utilities

import (
	"encoding/json"
	"os"
)

type JsonConfigObj[T any] interface {
	ConvertToDomain() T
}

func ReadConfig[T JsonConfigObj[U], U any](file string) (U, error) {
	var empty U

	fileContent, err := os.ReadFile(file)
	if err != nil {
		return empty, err
	}

	var config T
	err = json.Unmarshal(fileContent, &config)
	if err != nil {
		return empty, err
	}

	return config.ConvertToDomain(), nil
}

func ConvertJsonArrayToDomain[T JsonConfigObj[U], U any](jsonArray []T) []U {
	domainArray := make([]U, 0, len(jsonArray))
	for _, item := range jsonArray {
		domainArray = append(domainArray, item.ConvertToDomain())
	}
	return domainArray
}

func ConvertJsonMapToDomain[T JsonConfigObj[U], U any](jsonMap map[string]T) map[string]U {
	domainMap := make(map[string]U, len(jsonMap))
	for key, item := range jsonMap {
		domainMap[key] = item.ConvertToDomain()
	}
	return domainMap
}
