package types

import "time"

type DashboardAlerts struct {
	// Активности, срок которых прошёл, а статус всё ещё живой.
	OverdueActivities int64 `json:"overdue_activities"`
	OutOfService      int64 `json:"out_of_service"`
}

type DashboardCountByGroup struct {
	GroupName string `json:"group_name" db:"group_name"`
	Count     int64  `json:"count" db:"count"`
}

type DashboardUpcomingPlan struct {
	ID                 string    `json:"id"`
	Title              string    `json:"title"`
	Type               string    `json:"type"`
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	EquipmentID        *string   `json:"equipment_id,omitempty"`
	EquipmentReference *string   `json:"equipment_reference,omitempty"`
}

// DashboardStats - сводка по парку оборудования.
type DashboardStats struct {
	Alerts            DashboardAlerts         `json:"alerts"`
	TotalEquipment    int64                   `json:"total_equipment"`
	UtilizationPct    float64                 `json:"utilization_pct"`
	EquipmentByStatus []DashboardCountByGroup `json:"equipment_by_status"`
	LiveActivities    []DashboardCountByGroup `json:"live_activities"`
	PlansByStatus     []DashboardCountByGroup `json:"plans_by_status"`
	UpcomingPlans     []DashboardUpcomingPlan `json:"upcoming_plans"`
	GeneratedAt       time.Time               `json:"generated_at"`
}
