package pushtoken

// PushTokenRegisterInput for POST /push-tokens
type PushTokenRegisterInput struct {
	Body struct {
		Token string `json:"token" minLength:"1" maxLength:"4096" required:"true" doc:"Device push token (Expo or FCM)" example:"ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]"`
	}
}

// PushTokenUnregisterInput for DELETE /push-tokens
type PushTokenUnregisterInput struct {
	Token string `query:"token" minLength:"1" maxLength:"4096" required:"true" doc:"Device push token to remove" example:"ExponentPushToken[xxxxxxxxxxxxxxxxxxxxxx]"`
}
