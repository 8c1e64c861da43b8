package domain

const (
	EntityCtxKey  = "tent-entity"
	KeyPairCtxKey = "tent-keypair"
)
