package controllers

import (
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"petro-planning/internal/dto"
	"petro-planning/internal/entities"
	"petro-planning/internal/services"
	"petro-planning/pkg/api"
	apperrors "petro-planning/pkg/errors"
	"petro-planning/pkg/filestorage"
	"petro-planning/pkg/utils"
	"petro-planning/pkg/validation"
)

const requestTimeout = 15 * time.Second

type EquipmentController struct {
	equipmentService services.EquipmentServiceInterface
	activityService  services.ActivityServiceInterface
	importService    services.EquipmentImportServiceInterface
	fileStorage      filestorage.FileStorageInterface
	maxUploadSizeMB  int64
	logger           *zap.Logger
}

// NewEquipmentController: fileStorage может быть nil, тогда файлы импорта не архивируются.
func NewEquipmentController(
	equipmentService services.EquipmentServiceInterface,
	activityService services.ActivityServiceInterface,
	importService services.EquipmentImportServiceInterface,
	fileStorage filestorage.FileStorageInterface,
	maxUploadSizeMB int64,
	logger *zap.Logger,
) *EquipmentController {
	return &EquipmentController{
		equipmentService: equipmentService,
		activityService:  activityService,
		importService:    importService,
		fileStorage:      fileStorage,
		maxUploadSizeMB:  maxUploadSizeMB,
		logger:           logger,
	}
}

func badRequest(err error) error {
	return apperrors.NewHttpError(http.StatusBadRequest, "Неверный формат запроса", err, nil)
}

func (c *EquipmentController) CreateEquipment(ctx echo.Context) error {
	var data dto.CreateEquipmentDTO
	if err := ctx.Bind(&data); err != nil {
		return api.ErrorResponse(ctx, badRequest(err), c.logger)
	}

	reqCtx, cancel := utils.RequestContext(ctx, requestTimeout)
	defer cancel()

	res, err := c.equipmentService.Create(reqCtx, data)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "Оборудование успешно создано", res)
}

func (c *EquipmentController) GetEquipments(ctx echo.Context) error {
	filter := utils.ParseFilterFromQuery(ctx.Request().URL.Query())

	res, total, err := c.equipmentService.List(ctx.Request().Context(), filter)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessList(ctx, "Список оборудования успешно получен", res, total, filter.Page, filter.Limit)
}

func (c *EquipmentController) FindEquipment(ctx echo.Context) error {
	id := ctx.Param("id")
	res, err := c.equipmentService.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	if res == nil {
		return api.NotFound(ctx, "Оборудование", id)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Оборудование найдено", res)
}

func (c *EquipmentController) UpdateEquipment(ctx echo.Context) error {
	var data dto.UpdateEquipmentDTO
	if err := ctx.Bind(&data); err != nil {
		return api.ErrorResponse(ctx, badRequest(err), c.logger)
	}

	reqCtx, cancel := utils.RequestContext(ctx, requestTimeout)
	defer cancel()

	res, err := c.equipmentService.Update(reqCtx, ctx.Param("id"), data)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Оборудование успешно обновлено", res)
}

func (c *EquipmentController) DeleteEquipment(ctx echo.Context) error {
	id := ctx.Param("id")
	reqCtx, cancel := utils.RequestContext(ctx, requestTimeout)
	defer cancel()

	res, err := c.equipmentService.Delete(reqCtx, id)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	if res == nil {
		return api.NotFound(ctx, "Оборудование", id)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Оборудование удалено", res)
}

func (c *EquipmentController) ChangeStatus(ctx echo.Context) error {
	var data dto.ChangeEquipmentStatusDTO
	if err := ctx.Bind(&data); err != nil {
		return api.ErrorResponse(ctx, badRequest(err), c.logger)
	}
	if err := ctx.Validate(&data); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	reqCtx, cancel := utils.RequestContext(ctx, requestTimeout)
	defer cancel()

	res, err := c.equipmentService.ChangeStatus(reqCtx, ctx.Param("id"), data)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Статус оборудования изменён", res)
}

func (c *EquipmentController) GetHistory(ctx echo.Context) error {
	var historyType *string
	if t := strings.TrimSpace(ctx.QueryParam("type")); t != "" {
		historyType = &t
	}

	res, err := c.equipmentService.GetHistory(ctx.Request().Context(), ctx.Param("id"), historyType)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	if res == nil {
		res = []entities.EquipmentHistory{}
	}
	return api.SuccessOne(ctx, http.StatusOK, "История оборудования получена", res)
}

func (c *EquipmentController) AddActivity(ctx echo.Context) error {
	var data dto.CreateActivityDTO
	if err := ctx.Bind(&data); err != nil {
		return api.ErrorResponse(ctx, badRequest(err), c.logger)
	}

	reqCtx, cancel := utils.RequestContext(ctx, requestTimeout)
	defer cancel()

	res, err := c.activityService.AddActivity(reqCtx, ctx.Param("id"), data)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusCreated, "Активность добавлена", res)
}

func (c *EquipmentController) StartActivity(ctx echo.Context) error {
	reqCtx, cancel := utils.RequestContext(ctx, requestTimeout)
	defer cancel()

	res, err := c.activityService.StartActivity(reqCtx, ctx.Param("id"), ctx.Param("activityId"))
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Активность начата", res)
}

func (c *EquipmentController) CompleteActivity(ctx echo.Context) error {
	var data dto.CompleteActivityDTO
	if ctx.Request().ContentLength > 0 {
		if err := ctx.Bind(&data); err != nil {
			return api.ErrorResponse(ctx, badRequest(err), c.logger)
		}
	}

	reqCtx, cancel := utils.RequestContext(ctx, requestTimeout)
	defer cancel()

	res, err := c.activityService.CompleteActivity(reqCtx, ctx.Param("id"), ctx.Param("activityId"), data)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	return api.SuccessOne(ctx, http.StatusOK, "Активность завершена", res)
}

// ImportEquipment принимает .xlsx в поле формы "file".
func (c *EquipmentController) ImportEquipment(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return api.ErrorResponse(ctx,
			apperrors.NewHttpError(http.StatusBadRequest, "Файл не передан", err, nil), c.logger)
	}
	file, err := fileHeader.Open()
	if err != nil {
		return api.ErrorResponse(ctx, badRequest(err), c.logger)
	}
	defer file.Close()

	if err := validation.ValidateWorkbook(fileHeader, file, c.maxUploadSizeMB); err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}

	var archived string
	if c.fileStorage != nil {
		archived, err = c.fileStorage.Save(file, fileHeader.Filename, "imports")
		if err != nil {
			c.logger.Warn("Не удалось сохранить файл импорта", zap.String("file", fileHeader.Filename), zap.Error(err))
		}
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			return api.ErrorResponse(ctx, err, c.logger)
		}
	}

	res, err := c.importService.Import(ctx.Request().Context(), file)
	if err != nil {
		return api.ErrorResponse(ctx, err, c.logger)
	}
	res.File = archived
	c.logger.Info("Импорт оборудования из файла",
		zap.String("file", fileHeader.Filename), zap.String("archived", archived), zap.Int("created", res.Created))
	return api.SuccessOne(ctx, http.StatusOK, "Импорт завершён", res)
}
