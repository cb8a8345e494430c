package models

import "time"

// Назначения одноразовых кодов.
const (
	PurposeRegistration  = "registration"
	PurposeLogin         = "login"
	PurposePasswordReset = "password_reset"
	PurposePhoneChange   = "phone_change"
)

// OtpRecord представляет выданный одноразовый код.
// Код потребляем, пока не подтверждён, не истёк и попытки не исчерпаны;
// подтверждение выставляет VerifiedAt ровно один раз.
type OtpRecord struct {
	UID         string     // Непрозрачный идентификатор верификации
	UserUID     *string    // Владелец, nil до регистрации
	Phone       string     // Телефон, на который отправлен код
	Code        string     // Одноразовый код
	Purpose     string     // Назначение, см. константы Purpose*
	Attempts    int        // Число уже сделанных попыток проверки
	MaxAttempts int        // Предел попыток, после него код безвозвратно сгорает
	ExpiresAt   time.Time  // Срок действия кода
	VerifiedAt  *time.Time // Время успешного подтверждения, nil пока код не потреблён
	CreatedAt   time.Time
}

// Consumable сообщает, можно ли ещё подтвердить код.
func (o *OtpRecord) Consumable(now time.Time) bool {
	return o.VerifiedAt == nil && now.Before(o.ExpiresAt) && o.Attempts < o.MaxAttempts
}
