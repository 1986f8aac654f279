package seeders

import "petro-planning/internal/dto"

var projectsData = []struct {
	ID   string
	Name string
}{
	{ID: "6f1c2a4e-1b7d-4c55-9e0a-3a6b8f1d2c01", Name: "Hassi Messaoud Nord"},
	{ID: "6f1c2a4e-1b7d-4c55-9e0a-3a6b8f1d2c02", Name: "Rhourde Nouss Phase II"},
	{ID: "6f1c2a4e-1b7d-4c55-9e0a-3a6b8f1d2c03", Name: "Maintenance annuelle terminal"},
}

func f(v float64) *float64 { return &v }

func status(s string) *string { return &s }

var equipmentsData = []dto.CreateEquipmentDTO{
	{
		Name: "Pompe centrifuge API 610", Reference: "PMP-610-001", Matricule: "MAT-2019-0457",
		Dimensions:          &dto.DimensionsDTO{Height: f(180), Width: f(120), Length: f(240), Weight: f(1850)},
		OperatingConditions: &dto.OperatingConditionsDTO{Temperature: f(85), Pressure: f(16)},
		Location:            "Base logistique HMD",
	},
	{
		Name: "Séparateur triphasique", Reference: "SEP-3P-014", Matricule: "MAT-2016-1120",
		Dimensions:          &dto.DimensionsDTO{Height: f(320), Width: f(300), Length: f(1200), Weight: f(14200)},
		OperatingConditions: &dto.OperatingConditionsDTO{Temperature: f(60), Pressure: f(45)},
		Location:            "Champ RN, plateforme 3",
	},
	{
		Name: "Compresseur à vis", Reference: "CMP-VIS-007", Matricule: "MAT-2021-0033",
		Dimensions:          &dto.DimensionsDTO{Height: f(210), Width: f(160), Length: f(380), Weight: f(4300)},
		OperatingConditions: &dto.OperatingConditionsDTO{Temperature: f(110), Pressure: f(12.5)},
		Location:            "Atelier central",
		Status:              status("en_maintenance"),
	},
	{
		Name: "Groupe électrogène 500 kVA", Reference: "GEN-500-022", Matricule: "MAT-2014-0871",
		Dimensions:          &dto.DimensionsDTO{Height: f(230), Width: f(150), Length: f(480), Weight: f(5200)},
		OperatingConditions: &dto.OperatingConditionsDTO{Temperature: f(45), Pressure: f(1)},
		Location:            "Base logistique HMD",
		Status:              status("hors_service"),
	},
}
