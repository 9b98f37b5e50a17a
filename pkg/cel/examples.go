package cel

// FilterExpressionExamples are reporter.filter expressions over the
// normalized record fields.
var FilterExpressionExamples = map[string]string{
	"class_a_only":      `record.msgtype in [1, 2, 3, 5]`,
	"single_vessel":     `record.mmsi == 230123456`,
	"area_box":          `has(record.lat) && record.lat >= 59.0 && record.lat <= 61.0 && record.lon >= 21.0 && record.lon <= 26.0`,
	"moving":            `has(record.speed) && record.speed > 0.5`,
	"named_only":        `has(record.name) && record.name != ""`,
	"skip_base_station": `record.msgtype != 4`,
	"cargo_ships":       `has(record.shiptype) && record.shiptype >= 70.0 && record.shiptype < 80.0`,
	"to_port":           `has(record.destination) && record.destination.startsWith("HELSINKI")`,
}
