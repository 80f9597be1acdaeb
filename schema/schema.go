// Package schema defines the prediction request and response bodies and the
// declarative field constraints shared by the HTTP boundary and the service.
package schema

import (
	"reflect"
	"strings"
)

// HeartInput is one feature vector. Fields are pointers so that absent keys
// can be told apart from zero values. Field order matches the trained
// feature order.
type HeartInput struct {
	Age      *int     `json:"age" validate:"required,gte=1,lte=120"`
	Sex      *int     `json:"sex" validate:"required,gte=0,lte=1"`
	Cp       *int     `json:"cp" validate:"required,gte=0,lte=3"`
	Trestbps *int     `json:"trestbps" validate:"required,gte=0"`
	Chol     *int     `json:"chol" validate:"required,gte=0"`
	Fbs      *int     `json:"fbs" validate:"required,gte=0,lte=1"`
	Restecg  *int     `json:"restecg" validate:"required,gte=0,lte=2"`
	Thalach  *int     `json:"thalach" validate:"required,gte=0"`
	Exang    *int     `json:"exang" validate:"required,gte=0,lte=1"`
	Oldpeak  *float64 `json:"oldpeak" validate:"required,gte=0"`
	Slope    *int     `json:"slope" validate:"required,gte=0,lte=2"`
	Ca       *int     `json:"ca" validate:"required,gte=0,lte=4"`
	Thal     *int     `json:"thal" validate:"required,gte=0"`
}

// PredictionOutput is the /predict response.
type PredictionOutput struct {
	HeartDisease bool    `json:"heart_disease"`
	Probability  float64 `json:"probability"`
}

// InfoOutput is the /info response.
type InfoOutput struct {
	ModelType string   `json:"model_type"`
	Features  []string `json:"features"`
}

// MessageOutput is the / response.
type MessageOutput struct {
	Message string `json:"message"`
}

// HealthOutput is the /health response.
type HealthOutput struct {
	Status string `json:"status"`
}

var inputType = reflect.TypeOf(HeartInput{})

// FieldNames lists the request fields in declaration order.
func FieldNames() []string {
	names := make([]string, 0, inputType.NumField())
	for i := 0; i < inputType.NumField(); i++ {
		names = append(names, jsonName(inputType.Field(i)))
	}
	return names
}

// Values returns the set fields keyed by their JSON name.
func (in *HeartInput) Values() map[string]float64 {
	values := make(map[string]float64, inputType.NumField())
	v := reflect.ValueOf(in).Elem()
	for i := 0; i < inputType.NumField(); i++ {
		field := v.Field(i)
		if field.IsNil() {
			continue
		}
		name := jsonName(inputType.Field(i))
		switch elem := field.Elem(); elem.Kind() {
		case reflect.Int:
			values[name] = float64(elem.Int())
		case reflect.Float64:
			values[name] = elem.Float()
		}
	}
	return values
}

func jsonName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
	if name == "" {
		return field.Name
	}
	return name
}
