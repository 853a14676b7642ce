package generator

import (
	"math/rand"
	"strings"
	"time"

	"github.com/jaswdr/faker"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/sqltour/pkg/models"
)

// defaultStringLength bounds generated values for unbounded string columns
const defaultStringLength = 100

// DataGenerator generates fake data based on column names and types
type DataGenerator struct {
	Faker  faker.Faker
	Logger *logrus.Logger
}

// NewDataGenerator creates a new data generator
func NewDataGenerator(logger *logrus.Logger) *DataGenerator {
	return &DataGenerator{
		Faker:  faker.New(),
		Logger: logger,
	}
}

// NewSeededDataGenerator creates a data generator with reproducible output
func NewSeededDataGenerator(seed int64, logger *logrus.Logger) *DataGenerator {
	return &DataGenerator{
		Faker:  faker.NewWithSeed(rand.NewSource(seed)),
		Logger: logger,
	}
}

// GenerateData generates a value for a column based on its name and type.
// Nullable columns are occasionally left NULL.
func (dg *DataGenerator) GenerateData(table string, column models.Column) interface{} {
	if column.Nullable() && dg.Faker.IntBetween(1, 10) == 1 {
		return nil
	}

	if column.Type.Kind == models.StringKind || column.Type.Kind == models.TextKind {
		if value, ok := dg.generateByName(column); ok {
			return truncate(value, column.Type.Length)
		}
	}

	switch column.Type.Kind {
	case models.StringKind:
		return dg.generateString(column)
	case models.TextKind:
		return dg.Faker.Lorem().Paragraph(2)
	case models.IntegerKind:
		return dg.Faker.IntBetween(1, 100000)
	case models.FloatKind:
		return float64(dg.Faker.IntBetween(0, 100000)) / 100
	case models.BooleanKind:
		return dg.Faker.Boolean().Bool()
	case models.DateTimeKind:
		return time.Now().UTC().Add(-time.Duration(dg.Faker.IntBetween(0, 30*24)) * time.Hour).Truncate(time.Second)
	default:
		dg.Logger.Warningf("No specific generator for %s.%s, using default string", table, column.Name)
		return dg.Faker.Lorem().Word()
	}
}

// generateByName picks a realistic value from well known column names
func (dg *DataGenerator) generateByName(column models.Column) (string, bool) {
	columnName := strings.ToLower(column.Name)

	switch {
	case strings.Contains(columnName, "email"):
		return dg.Faker.Internet().Email(), true
	case strings.Contains(columnName, "fullname") || strings.Contains(columnName, "full_name"):
		return dg.Faker.Person().Name(), true
	case strings.Contains(columnName, "name") && !strings.Contains(columnName, "file"):
		if strings.Contains(columnName, "first") {
			return dg.Faker.Person().FirstName(), true
		} else if strings.Contains(columnName, "last") {
			return dg.Faker.Person().LastName(), true
		} else if strings.Contains(columnName, "company") {
			return dg.Faker.Company().Name(), true
		}
		return dg.Faker.Internet().User(), true
	case strings.Contains(columnName, "phone"):
		return dg.Faker.Phone().Number(), true
	case strings.Contains(columnName, "address") || strings.Contains(columnName, "street"):
		return dg.Faker.Address().Address(), true
	case strings.Contains(columnName, "city"):
		return dg.Faker.Address().City(), true
	case strings.Contains(columnName, "country"):
		return dg.Faker.Address().Country(), true
	case strings.Contains(columnName, "zip") || strings.Contains(columnName, "postal"):
		return dg.Faker.Address().PostCode(), true
	case strings.Contains(columnName, "title"):
		return dg.Faker.Lorem().Sentence(4), true
	case strings.Contains(columnName, "description") || strings.Contains(columnName, "summary"):
		return dg.Faker.Lorem().Paragraph(3), true
	case strings.Contains(columnName, "url") || strings.Contains(columnName, "website"):
		return dg.Faker.Internet().URL(), true
	case strings.Contains(columnName, "uuid"):
		return dg.Faker.UUID().V4(), true
	}
	return "", false
}

// generateString generates a string value that fits the column length
func (dg *DataGenerator) generateString(column models.Column) string {
	maxLength := column.Type.Length
	if maxLength == 0 || maxLength > defaultStringLength {
		maxLength = defaultStringLength
	}

	length := dg.Faker.IntBetween(1, maxLength)

	// For very short fields, use more specific generators
	var value string
	if length <= 5 {
		value = dg.Faker.RandomStringWithLength(length)
	} else if length <= 10 {
		value = dg.Faker.Lorem().Word()
	} else {
		value = dg.Faker.Lorem().Sentence(length/10 + 1)
	}
	return truncate(value, maxLength)
}

// truncate keeps at most length characters of value
func truncate(value string, length int) string {
	if length <= 0 {
		return value
	}
	n := 0
	for i := range value {
		if n == length {
			return value[:i]
		}
		n++
	}
	return value
}
