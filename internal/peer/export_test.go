package peer

var StatusError = statusError
