package converter

import (
	"go-clinic-scheduler/internal/delivery/dto"
	"go-clinic-scheduler/internal/domain/entity"
)

// AppointmentToResponse converts an Appointment to the projection visible to viewer.
// Doctors see the patient, patients see the doctor and admins see both. Nobody
// gets their own identity echoed back.
func AppointmentToResponse(appointment *entity.Appointment, viewer entity.Actor) *dto.AppointmentResponse {
	if appointment == nil {
		return nil
	}

	response := &dto.AppointmentResponse{
		ID:                appointment.ID,
		Date:              appointment.Date.String(),
		QueueNumber:       appointment.QueueNumber,
		Status:            string(appointment.Status),
		NurseID:           appointment.NurseID,
		Disease:           appointment.Disease,
		Level:             appointment.Level,
		UnderlyingDisease: appointment.UnderlyingDisease,
		Description:       appointment.Description,
		Advice:            appointment.Advice,
		MedicinesList:     MedicineLinesToResponses(appointment.MedicinesList),
		CreatedAt:         appointment.CreatedAt,
		UpdatedAt:         appointment.UpdatedAt,
	}

	switch viewer.RoleID {
	case entity.RoleIDAdmin:
		response.Doctor = UserToPerson(appointment.Doctor)
		response.Patient = UserToPerson(appointment.Patient)
	case entity.RoleIDDoctor:
		response.Patient = UserToPerson(appointment.Patient)
	case entity.RoleIDPatient:
		response.Doctor = UserToPerson(appointment.Doctor)
	}

	return response
}

func AppointmentsToResponses(appointments []entity.Appointment, viewer entity.Actor) []dto.AppointmentResponse {
	responses := make([]dto.AppointmentResponse, len(appointments))
	for i := range appointments {
		responses[i] = *AppointmentToResponse(&appointments[i], viewer)
	}
	return responses
}

func MedicineLinesToResponses(lines []entity.MedicineLine) []dto.MedicineLineResponse {
	responses := make([]dto.MedicineLineResponse, len(lines))
	for i, line := range lines {
		responses[i] = dto.MedicineLineResponse{
			MedicineID: line.MedicineID,
			Amount:     line.Amount,
		}
	}
	return responses
}

// AppointmentsToSchedule keeps only what a doctor's agenda needs.
func AppointmentsToSchedule(doctor *entity.User, appointments []entity.Appointment) *dto.DoctorScheduleResponse {
	entries := make([]dto.ScheduleEntryResponse, len(appointments))
	for i, appointment := range appointments {
		entries[i] = dto.ScheduleEntryResponse{
			ID:          appointment.ID,
			Date:        appointment.Date.String(),
			QueueNumber: appointment.QueueNumber,
		}
	}

	return &dto.DoctorScheduleResponse{
		DoctorID:     doctor.ID,
		FullName:     doctor.FullName,
		Appointments: entries,
	}
}

func DoctorCapacityToResponse(capacity entity.DoctorCapacity, queueRange entity.QueueRange) dto.FreeDoctorResponse {
	booked := int(capacity.Booked)
	return dto.FreeDoctorResponse{
		ID:          capacity.ID,
		FullName:    capacity.FullName,
		Email:       capacity.Email,
		PhoneNumber: capacity.PhoneNumber,
		Booked:      booked,
		Free:        queueRange.Size() - booked,
	}
}
