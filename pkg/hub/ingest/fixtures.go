package ingest

// Fixture datasets served for fixture:// entrypoints. These back the sample
// sources and let the full snapshot lifecycle run without network access.
var fixtureDatasets = map[string]Payload{
	"admin_v1": {
		AdminDivisions: []AdminDivision{
			{Adcode: "330000", Name: "浙江省", Level: "province", NameAliases: []string{"浙"}},
			{Adcode: "330100", Name: "杭州市", Level: "city", ParentAdcode: "330000", NameAliases: []string{"杭州"}},
			{Adcode: "330106", Name: "西湖区", Level: "district", ParentAdcode: "330100", NameAliases: []string{"西湖"}},
		},
		Roads: []Road{
			{RoadID: "r-330106-001", Name: "文三路", NormalizedName: "文三路", AdminAdcode: "330106"},
		},
		POIs: []POI{
			{POIID: "p-330106-001", Name: "西溪银泰城", NormalizedName: "西溪银泰城", Category: "mall", AdminAdcode: "330106", Centroid: "120.083,30.286"},
		},
		Places: []Place{
			{PlaceID: "pl-330106-001", Name: "西溪", NormalizedName: "西溪", Type: "place", AdminAdcode: "330106", ConfidenceHint: 0.85},
		},
	},
	"admin_v2": {
		AdminDivisions: []AdminDivision{
			{Adcode: "330000", Name: "浙江省", Level: "province", NameAliases: []string{"浙"}},
			{Adcode: "330100", Name: "杭州市", Level: "city", ParentAdcode: "330000", NameAliases: []string{"杭州"}},
			{Adcode: "330110", Name: "余杭区", Level: "district", ParentAdcode: "330100", NameAliases: []string{"余杭"}},
		},
		Roads: []Road{
			{RoadID: "r-330110-001", Name: "良睦路", NormalizedName: "良睦路", AdminAdcode: "330110"},
		},
		POIs: []POI{
			{POIID: "p-330110-001", Name: "未来科技城", NormalizedName: "未来科技城", Category: "business", AdminAdcode: "330110", Centroid: "120.020,30.285"},
		},
		Places: []Place{
			{PlaceID: "pl-330110-001", Name: "未来科技城", NormalizedName: "未来科技城", Type: "place", AdminAdcode: "330110", ConfidenceHint: 0.75},
		},
	},
	"osm_china_v1": {
		AdminDivisions: []AdminDivision{},
		Roads: []Road{
			{RoadID: "osm-r-001", Name: "中关村大街", NormalizedName: "中关村大街", AdminAdcode: "110108"},
		},
		POIs: []POI{
			{POIID: "osm-p-001", Name: "清华大学", NormalizedName: "清华大学", Category: "education", AdminAdcode: "110108", Centroid: "116.326,40.003"},
		},
		Places: []Place{},
	},
}

// defaultFixtureVariant is served when a fixture source names an unknown variant.
const defaultFixtureVariant = "admin_v1"

// FixturePayload returns the fixture dataset for the given dataset variant,
// falling back to the default variant when the name is unknown.
func FixturePayload(variant string) Payload {
	if p, ok := fixtureDatasets[variant]; ok {
		return p
	}
	return fixtureDatasets[defaultFixtureVariant]
}
