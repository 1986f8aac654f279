package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"petro-planning/internal/dto"
	"petro-planning/internal/events"
	apperrors "petro-planning/pkg/errors"
	"petro-planning/pkg/utils"
)

type EquipmentImportServiceInterface interface {
	ImportFile(ctx context.Context, path string) (*dto.ImportResultDTO, error)
	Import(ctx context.Context, r io.Reader) (*dto.ImportResultDTO, error)
}

// EquipmentImportService загружает оборудование из .xlsx. Каждая строка
// проходит через обычное создание: валидация, уникальность и кеш те же.
type EquipmentImportService struct {
	equipment EquipmentServiceInterface
	notifier  NotificationServiceInterface
	logger    *zap.Logger
}

func NewEquipmentImportService(
	equipment EquipmentServiceInterface,
	notifier NotificationServiceInterface,
	logger *zap.Logger,
) *EquipmentImportService {
	return &EquipmentImportService{equipment: equipment, notifier: notifier, logger: logger}
}

type importColumn int

const (
	colReference importColumn = iota
	colMatricule
	colName
	colHeight
	colWidth
	colLength
	colWeight
	colTemperature
	colPressure
	colLocation
	colStatus
	columnCount
)

// headerAliases - подписи колонок, которые встречаются в выгрузках (fr/en/ru).
var headerAliases = map[importColumn][]string{
	colReference:   {"référence", "reference", "ref", "референс"},
	colMatricule:   {"matricule", "serial", "серийный", "заводской"},
	colName:        {"désignation", "designation", "nom", "name", "наименование"},
	colHeight:      {"hauteur", "height", "высота"},
	colWidth:       {"largeur", "width", "ширина"},
	colLength:      {"longueur", "length", "длина"},
	colWeight:      {"poids", "weight", "вес"},
	colTemperature: {"température", "temperature", "температура"},
	colPressure:    {"pression", "pressure", "давление"},
	colLocation:    {"localisation", "emplacement", "location", "местоположение"},
	colStatus:      {"statut", "status", "état", "статус"},
}

var requiredColumns = []importColumn{colReference, colMatricule, colName}

func matchHeader(row []string) ([columnCount]int, bool) {
	var idx [columnCount]int
	for i := range idx {
		idx[i] = -1
	}
	for cIdx, cell := range row {
		lower := strings.ToLower(strings.TrimSpace(cell))
		if lower == "" {
			continue
		}
		for col, aliases := range headerAliases {
			if idx[col] != -1 {
				continue
			}
			for _, alias := range aliases {
				if strings.Contains(lower, alias) {
					idx[col] = cIdx
					break
				}
			}
		}
	}
	for _, col := range requiredColumns {
		if idx[col] == -1 {
			return idx, false
		}
	}
	return idx, true
}

func (s *EquipmentImportService) ImportFile(ctx context.Context, path string) (*dto.ImportResultDTO, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка открытия файла: %w", err)
	}
	defer f.Close()
	return s.importWorkbook(ctx, f)
}

func (s *EquipmentImportService) Import(ctx context.Context, r io.Reader) (*dto.ImportResultDTO, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewValidationError("файл не является книгой Excel: %v", err)
	}
	defer f.Close()
	return s.importWorkbook(ctx, f)
}

func (s *EquipmentImportService) importWorkbook(ctx context.Context, f *excelize.File) (*dto.ImportResultDTO, error) {
	var (
		rows      [][]string
		idx       [columnCount]int
		headerRow = -1
	)
	for _, sheet := range f.GetSheetList() {
		sheetRows, err := f.GetRows(sheet)
		if err != nil {
			s.logger.Warn("Не удалось прочитать лист", zap.String("sheet", sheet), zap.Error(err))
			continue
		}
		for rIdx, row := range sheetRows {
			if found, ok := matchHeader(row); ok {
				rows, idx, headerRow = sheetRows, found, rIdx
				s.logger.Info("Заголовки найдены", zap.String("sheet", sheet), zap.Int("row", rIdx+1))
				break
			}
		}
		if headerRow != -1 {
			break
		}
	}
	if headerRow == -1 {
		return nil, apperrors.NewValidationError("не найдена шапка таблицы: нужны колонки reference, matricule и name")
	}

	result := &dto.ImportResultDTO{Errors: []string{}}
	for i := headerRow + 1; i < len(rows); i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		row := rows[i]
		lineNum := i + 1
		if isBlankRow(row) {
			continue
		}

		data, err := rowToEquipment(row, idx)
		if err == nil {
			_, err = s.equipment.Create(ctx, data)
		}
		switch {
		case err == nil:
			result.Created++
		case errors.Is(err, apperrors.ErrDuplicateKey):
			result.Skipped++
		case errors.Is(err, apperrors.ErrValidation):
			result.Errors = append(result.Errors, fmt.Sprintf("строка %d: %s", lineNum, validationSummary(err)))
		default:
			s.logger.Error("Сбой импорта строки", zap.Int("row", lineNum), zap.Error(err))
			return result, err
		}
	}

	if result.Created > 0 {
		s.notifier.EquipmentChanged(ctx, events.EquipmentEvent{
			EventName: events.EquipmentImported,
			Actor:     utils.GetUserIDFromCtx(ctx),
			Message:   fmt.Sprintf("Импортировано оборудования: %d", result.Created),
		})
	}
	s.logger.Info("Импорт оборудования завершён",
		zap.Int("created", result.Created), zap.Int("skipped", result.Skipped), zap.Int("errors", len(result.Errors)))
	return result, nil
}

func validationSummary(err error) string {
	details := apperrors.DetailsOf(err)
	if len(details) == 0 {
		return err.Error()
	}
	parts := make([]string, 0, len(details))
	for field, rule := range details {
		parts = append(parts, fmt.Sprintf("%s (%v)", field, rule))
	}
	return err.Error() + ": " + strings.Join(parts, ", ")
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseNumber понимает десятичную запятую; пустая ячейка - nil.
func parseNumber(row []string, i int, field string, bad map[string]string) *float64 {
	raw := strings.ReplaceAll(cell(row, i), ",", ".")
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		bad[field] = "numeric"
		return nil
	}
	return &v
}

func rowToEquipment(row []string, idx [columnCount]int) (dto.CreateEquipmentDTO, error) {
	bad := map[string]string{}
	data := dto.CreateEquipmentDTO{
		Reference: cell(row, idx[colReference]),
		Matricule: cell(row, idx[colMatricule]),
		Name:      cell(row, idx[colName]),
		Location:  cell(row, idx[colLocation]),
		Dimensions: &dto.DimensionsDTO{
			Height: parseNumber(row, idx[colHeight], "height", bad),
			Width:  parseNumber(row, idx[colWidth], "width", bad),
			Length: parseNumber(row, idx[colLength], "length", bad),
			Weight: parseNumber(row, idx[colWeight], "weight", bad),
		},
		OperatingConditions: &dto.OperatingConditionsDTO{
			Temperature: parseNumber(row, idx[colTemperature], "temperature", bad),
			Pressure:    parseNumber(row, idx[colPressure], "pressure", bad),
		},
	}
	if status := cell(row, idx[colStatus]); status != "" {
		data.Status = &status
	}
	if len(bad) > 0 {
		return data, apperrors.NewFieldValidationError("некорректные числовые значения", bad)
	}
	return data, nil
}
